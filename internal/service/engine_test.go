package service

import (
	"context"
	"testing"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/notify"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T, conf *config.Config) (*TradingEngine, *PortfolioService, *RiskService) {
	t.Helper()

	logger := zap.NewNop()
	manager := exchange.NewManager(logger)
	manager.Register(exchange.NewPaperExchange(10000, logger))

	portfolio := NewPortfolioService(newTestDB(t), conf, logger)
	risk := NewRiskService(conf, portfolio, logger)
	report := NewReportService(portfolio, logger)
	arbitrage := NewArbitrageStrategy(conf, manager, logger)
	momentum := NewMomentumStrategy(conf, manager, logger)
	notifier := notify.NewNotifier(conf, logger)

	engine := NewTradingEngine(conf, portfolio, risk, report, arbitrage, momentum, manager, notifier, logger)
	return engine, portfolio, risk
}

func TestProcessTradeResultRecordsAndTracksLoss(t *testing.T) {
	t.Parallel()
	engine, portfolio, risk := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	engine.processTradeResult(ctx, sellTrade("BTC/USDT", 0.01, 45000, -25))

	metrics := portfolio.GetPerformanceMetrics()
	assert.Equal(t, 1, metrics.TotalTrades)
	assert.InDelta(t, -25, metrics.DailyProfit, 1e-9)
	assert.Equal(t, 1, risk.RecentLossCount())

	engine.processTradeResult(ctx, sellTrade("BTC/USDT", 0.01, 46000, 30))
	assert.Equal(t, 1, risk.RecentLossCount())
	assert.InDelta(t, 5, portfolio.GetPerformanceMetrics().DailyProfit, 1e-9)
}

func TestCheckProfitMilestonesFiresOncePerThreshold(t *testing.T) {
	t.Parallel()
	engine, portfolio, _ := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.01, 45000, 60))

	engine.checkProfitMilestones()
	assert.Len(t, engine.firedMilestones, 1)
	assert.Contains(t, engine.firedMilestones, 50.0)

	// 同一阈值不会重复触发
	engine.checkProfitMilestones()
	assert.Len(t, engine.firedMilestones, 1)

	// 跨过下一个阈值后触发100
	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.01, 45000, 50))
	engine.checkProfitMilestones()
	assert.Len(t, engine.firedMilestones, 2)
	assert.Contains(t, engine.firedMilestones, 100.0)
}

func TestCheckProfitMilestonesFiresAllCrossed(t *testing.T) {
	t.Parallel()
	engine, portfolio, _ := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	// 一次跨过多个阈值时全部触发，不遗留到下一轮
	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.1, 45000, 300))
	engine.checkProfitMilestones()

	assert.Len(t, engine.firedMilestones, 3)
	assert.Contains(t, engine.firedMilestones, 50.0)
	assert.Contains(t, engine.firedMilestones, 100.0)
	assert.Contains(t, engine.firedMilestones, 250.0)
}

func TestEngineRestart(t *testing.T) {
	t.Parallel()
	engine, _, _ := newTestEngine(t, newTestConfig())

	done := make(chan error, 1)
	go func() { done <- engine.Start(context.Background()) }()
	require.Eventually(t, engine.IsRunning, time.Second, 5*time.Millisecond)

	engine.Stop()
	require.NoError(t, <-done)
	assert.False(t, engine.IsRunning())

	// 停止后可再次启动
	go func() { done <- engine.Start(context.Background()) }()
	require.Eventually(t, engine.IsRunning, time.Second, 5*time.Millisecond)

	// 再次停止不会panic
	engine.Stop()
	require.NoError(t, <-done)
	assert.False(t, engine.IsRunning())
}

func TestExecuteCycleSkipsWhenLimited(t *testing.T) {
	t.Parallel()

	conf := newTestConfig()
	conf.Trading.EnableArbitrage = false
	conf.Trading.EnableMomentum = false
	engine, portfolio, _ := newTestEngine(t, conf)
	ctx := context.Background()

	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.01, 45000, -150))
	require.False(t, portfolio.CheckTradingLimits().CanTrade)

	before := portfolio.GetPerformanceMetrics().TotalTrades
	engine.executeCycle(ctx)
	assert.Equal(t, before, portfolio.GetPerformanceMetrics().TotalTrades)
	assert.EqualValues(t, 1, engine.cycleCount)
}

func TestExecuteCycleEmergencyHalt(t *testing.T) {
	t.Parallel()
	engine, _, risk := newTestEngine(t, newTestConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		risk.RecordLoss(10)
	}
	require.True(t, risk.EmergencyShutdownCheck())

	engine.executeCycle(ctx)
	assert.False(t, engine.IsRunning())
}

func TestEngineStatus(t *testing.T) {
	t.Parallel()
	engine, _, _ := newTestEngine(t, newTestConfig())

	status := engine.GetStatus()
	assert.Equal(t, false, status["is_running"])
	assert.Equal(t, true, status["enable_arbitrage"])
	assert.Equal(t, true, status["enable_momentum"])
	assert.Equal(t, []string{"paper"}, status["exchanges"])
}
