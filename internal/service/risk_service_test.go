package service

import (
	"context"
	"testing"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRisk(t *testing.T, conf *config.Config) (*RiskService, *PortfolioService) {
	t.Helper()
	portfolio := NewPortfolioService(newTestDB(t), conf, zap.NewNop())
	risk := NewRiskService(conf, portfolio, zap.NewNop())
	return risk, portfolio
}

func momentumSignal(confidence float64) Signal {
	return Signal{
		Strategy:   models.StrategyMomentum,
		Symbol:     "BTC/USDT",
		Exchange:   "paper",
		Action:     models.ActionBuy,
		Confidence: confidence,
	}
}

func TestEvaluateTradeRiskApprovesCleanSignal(t *testing.T) {
	t.Parallel()
	risk, _ := newTestRisk(t, newTestConfig())

	assessment := risk.EvaluateTradeRisk(momentumSignal(0.9), 10000)
	assert.True(t, assessment.Approved)
	assert.Zero(t, assessment.RiskScore)
	assert.Empty(t, assessment.Warnings)
	assert.InDelta(t, 1.0, assessment.PositionSizeAdjustment, 1e-9)
}

func TestEvaluateTradeRiskLowConfidence(t *testing.T) {
	t.Parallel()
	risk, _ := newTestRisk(t, newTestConfig())

	assessment := risk.EvaluateTradeRisk(momentumSignal(0.5), 10000)
	assert.True(t, assessment.Approved)
	assert.InDelta(t, 0.3, assessment.RiskScore, 1e-9)
	require.Len(t, assessment.Warnings, 1)
	assert.Contains(t, assessment.Warnings[0], "confidence")
	assert.InDelta(t, 1.0, assessment.PositionSizeAdjustment, 1e-9)
}

func TestEvaluateTradeRiskLowBalance(t *testing.T) {
	t.Parallel()
	risk, _ := newTestRisk(t, newTestConfig())

	assessment := risk.EvaluateTradeRisk(momentumSignal(0.9), 500)
	assert.True(t, assessment.Approved)
	assert.InDelta(t, 0.2, assessment.RiskScore, 1e-9)
	assert.InDelta(t, 0.8, assessment.PositionSizeAdjustment, 1e-9)
}

func TestEvaluateTradeRiskMonotonic(t *testing.T) {
	t.Parallel()
	risk, _ := newTestRisk(t, newTestConfig())

	base := risk.EvaluateTradeRisk(momentumSignal(0.9), 10000)

	worseConfidence := risk.EvaluateTradeRisk(momentumSignal(0.4), 10000)
	assert.GreaterOrEqual(t, worseConfidence.RiskScore, base.RiskScore)
	assert.LessOrEqual(t, worseConfidence.PositionSizeAdjustment, base.PositionSizeAdjustment)

	worseBalance := risk.EvaluateTradeRisk(momentumSignal(0.9), 100)
	assert.GreaterOrEqual(t, worseBalance.RiskScore, base.RiskScore)
	assert.LessOrEqual(t, worseBalance.PositionSizeAdjustment, base.PositionSizeAdjustment)

	both := risk.EvaluateTradeRisk(momentumSignal(0.4), 100)
	assert.GreaterOrEqual(t, both.RiskScore, worseBalance.RiskScore)
	assert.LessOrEqual(t, both.PositionSizeAdjustment, worseBalance.PositionSizeAdjustment)
}

func TestEvaluateTradeRiskRejectsHighScore(t *testing.T) {
	t.Parallel()
	risk, portfolio := newTestRisk(t, newTestConfig())
	ctx := context.Background()

	// 12笔完结交易，胜率33%（4胜8负），低胜率因子生效
	for i := 0; i < 4; i++ {
		portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.001, 45000, 1))
	}
	for i := 0; i < 8; i++ {
		portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.001, 45000, -1))
	}

	// 低置信度0.3 + 低胜率0.4 + 小余额0.2 = 0.9 > 0.8
	assessment := risk.EvaluateTradeRisk(momentumSignal(0.5), 500)
	assert.False(t, assessment.Approved)
	assert.InDelta(t, 0.9, assessment.RiskScore, 1e-9)
	assert.Contains(t, assessment.Warnings, "Risk score too high")
	// 仓位调整系数 0.5 * 0.8
	assert.InDelta(t, 0.4, assessment.PositionSizeAdjustment, 1e-9)
}

func TestEvaluateTradeRiskScoreCappedAtOne(t *testing.T) {
	t.Parallel()
	risk, portfolio := newTestRisk(t, newTestConfig())
	ctx := context.Background()

	// 12笔完结交易，胜率33%，当日亏损-60，四个风险因子全部触发
	for i := 0; i < 4; i++ {
		portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.001, 45000, 1))
	}
	for i := 0; i < 8; i++ {
		portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.001, 45000, -8))
	}

	assessment := risk.EvaluateTradeRisk(momentumSignal(0.5), 500)
	assert.False(t, assessment.Approved)
	// 0.3+0.4+0.3+0.2 叠加后封顶在1.0
	assert.InDelta(t, 1.0, assessment.RiskScore, 1e-9)
	assert.Len(t, assessment.Warnings, 5)
	// 仓位调整系数 0.5 * 0.7 * 0.8
	assert.InDelta(t, 0.28, assessment.PositionSizeAdjustment, 1e-9)
}

func TestEvaluateTradeRiskDailyLossFactor(t *testing.T) {
	t.Parallel()
	risk, portfolio := newTestRisk(t, newTestConfig())
	ctx := context.Background()

	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.001, 45000, -60))

	assessment := risk.EvaluateTradeRisk(momentumSignal(0.9), 10000)
	assert.True(t, assessment.Approved)
	assert.InDelta(t, 0.3, assessment.RiskScore, 1e-9)
	assert.InDelta(t, 0.7, assessment.PositionSizeAdjustment, 1e-9)
	require.Len(t, assessment.Warnings, 1)
	assert.Contains(t, assessment.Warnings[0], "daily loss")
}

func TestEvaluateTradeRiskRejectsWhenLimitsBlock(t *testing.T) {
	t.Parallel()
	risk, portfolio := newTestRisk(t, newTestConfig())
	ctx := context.Background()

	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.01, 45000, -150))

	assessment := risk.EvaluateTradeRisk(momentumSignal(0.9), 10000)
	assert.False(t, assessment.Approved)
	assert.InDelta(t, 1.0, assessment.RiskScore, 1e-9)
	assert.Zero(t, assessment.PositionSizeAdjustment)
	require.NotEmpty(t, assessment.Warnings)
	assert.Contains(t, assessment.Warnings[0], "loss limit")
}

func TestRecordLossCooldownBlocksSignals(t *testing.T) {
	t.Parallel()
	risk, _ := newTestRisk(t, newTestConfig())

	risk.RecordLoss(10)
	risk.RecordLoss(10)
	risk.RecordLoss(10)

	// 3笔亏损不足以触发紧急停机
	assert.False(t, risk.EmergencyShutdownCheck())

	// 冷却期内信号被拒
	assessment := risk.EvaluateTradeRisk(momentumSignal(0.95), 10000)
	assert.False(t, assessment.Approved)
	require.NotEmpty(t, assessment.Warnings)
	assert.Contains(t, assessment.Warnings[0], "cooldown")
}

func TestEmergencyShutdownOnLossCount(t *testing.T) {
	t.Parallel()
	risk, _ := newTestRisk(t, newTestConfig())

	for i := 0; i < 4; i++ {
		risk.RecordLoss(5)
	}
	assert.False(t, risk.EmergencyShutdownCheck())

	risk.RecordLoss(5)
	assert.Equal(t, 5, risk.RecentLossCount())
	assert.True(t, risk.EmergencyShutdownCheck())
}

func TestEmergencyShutdownOnDailyLoss(t *testing.T) {
	t.Parallel()
	risk, portfolio := newTestRisk(t, newTestConfig())
	ctx := context.Background()

	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.1, 45000, -499))
	assert.False(t, risk.EmergencyShutdownCheck())

	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.1, 45000, -1))
	assert.True(t, risk.EmergencyShutdownCheck())
}
