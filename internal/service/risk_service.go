package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"go.uber.org/zap"
)

// Signal 策略产生的交易信号
type Signal struct {
	Strategy   string  `json:"strategy"`
	Symbol     string  `json:"symbol"`
	Exchange   string  `json:"exchange"`
	Action     string  `json:"action"`
	AmountUSD  float64 `json:"amount_usd"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// RiskAssessment 风控评估结果
type RiskAssessment struct {
	Approved               bool     `json:"approved"`
	RiskScore              float64  `json:"risk_score"`
	Warnings               []string `json:"warnings"`
	PositionSizeAdjustment float64  `json:"position_size_adjustment"`
}

type lossRecord struct {
	Amount    float64
	Timestamp time.Time
}

// RiskService 风控评估器。持有24小时滑动亏损窗口与冷却状态，
// 只读台账指标，从不写入台账。
type RiskService struct {
	logger    *zap.Logger
	portfolio *PortfolioService

	cooldownAfterLoss  time.Duration
	emergencyDailyLoss float64
	lowBalanceLimit    float64
	dailyLossWarning   float64

	mu           sync.Mutex
	recentLosses []lossRecord
	lastLossTime time.Time
}

// NewRiskService 创建风控服务
func NewRiskService(conf *config.Config, portfolio *PortfolioService, logger *zap.Logger) *RiskService {
	rc := conf.RiskManagement
	return &RiskService{
		logger:             logger,
		portfolio:          portfolio,
		cooldownAfterLoss:  time.Duration(rc.CooldownAfterLoss) * time.Second,
		emergencyDailyLoss: rc.EmergencyDailyLoss,
		lowBalanceLimit:    rc.LowBalanceLimit,
		dailyLossWarning:   rc.DailyLossWarning,
	}
}

// EvaluateTradeRisk 评估一笔交易信号。
// 风险因子按权重累加（非平均），仓位调整系数按触发因子连乘。
// 评估过程中任何内部错误一律拒绝，宁可错杀不可放行。
func (s *RiskService) EvaluateTradeRisk(signal Signal, accountBalance float64) (assessment RiskAssessment) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("risk evaluation panicked, rejecting trade", zap.Any("panic", r))
			assessment = RiskAssessment{
				Approved:               false,
				RiskScore:              1.0,
				Warnings:               []string{"risk evaluation error"},
				PositionSizeAdjustment: 0,
			}
		}
	}()

	assessment = RiskAssessment{
		Approved:               true,
		PositionSizeAdjustment: 1.0,
	}

	limits := s.portfolio.CheckTradingLimits()
	if !limits.CanTrade {
		assessment.Approved = false
		assessment.RiskScore = 1.0
		assessment.Warnings = append(assessment.Warnings, limits.Reasons...)
		assessment.PositionSizeAdjustment = 0
		return assessment
	}

	s.mu.Lock()
	lastLoss := s.lastLossTime
	s.mu.Unlock()

	if !lastLoss.IsZero() {
		elapsed := time.Since(lastLoss)
		if elapsed < s.cooldownAfterLoss {
			remaining := s.cooldownAfterLoss - elapsed
			assessment.Approved = false
			assessment.RiskScore = 1.0
			assessment.Warnings = append(assessment.Warnings,
				fmt.Sprintf("In cooldown period after loss (%.0fs remaining)", remaining.Seconds()))
			assessment.PositionSizeAdjustment = 0
			return assessment
		}
	}

	metrics := s.portfolio.GetPerformanceMetrics()

	// 信号置信度不足
	if signal.Confidence < 0.6 {
		assessment.RiskScore += 0.3
		assessment.Warnings = append(assessment.Warnings,
			fmt.Sprintf("Low signal confidence: %.2f", signal.Confidence))
	}

	// 近期胜率过低，仓位减半
	if metrics.CompletedTrades > 10 && metrics.WinRate < 40 {
		assessment.RiskScore += 0.4
		assessment.PositionSizeAdjustment *= 0.5
		assessment.Warnings = append(assessment.Warnings,
			fmt.Sprintf("Low recent win rate: %.1f%%", metrics.WinRate))
	}

	// 当日亏损超过预警线
	if metrics.DailyProfit < -s.dailyLossWarning {
		assessment.RiskScore += 0.3
		assessment.PositionSizeAdjustment *= 0.7
		assessment.Warnings = append(assessment.Warnings,
			fmt.Sprintf("Significant daily loss: $%.2f", metrics.DailyProfit))
	}

	// 账户余额偏低
	if accountBalance < s.lowBalanceLimit {
		assessment.RiskScore += 0.2
		assessment.PositionSizeAdjustment *= 0.8
		assessment.Warnings = append(assessment.Warnings,
			fmt.Sprintf("Low account balance: $%.2f", accountBalance))
	}

	// 多因子叠加后封顶在1.0
	if assessment.RiskScore > 1.0 {
		assessment.RiskScore = 1.0
	}

	if assessment.RiskScore > 0.8 {
		assessment.Approved = false
		assessment.Warnings = append(assessment.Warnings, "Risk score too high")
	}

	if !assessment.Approved || len(assessment.Warnings) > 0 {
		s.logger.Info("risk assessment",
			zap.String("symbol", signal.Symbol),
			zap.String("strategy", signal.Strategy),
			zap.Bool("approved", assessment.Approved),
			zap.Float64("risk_score", assessment.RiskScore),
			zap.Strings("warnings", assessment.Warnings))
	}

	return assessment
}

// RecordLoss 记录一笔亏损并进入冷却，同时清理窗口内的过期记录
func (s *RiskService) RecordLoss(amount float64) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentLosses = append(s.recentLosses, lossRecord{Amount: amount, Timestamp: now})
	s.lastLossTime = now
	s.pruneLocked(now)

	s.logger.Warn("loss recorded, cooldown started",
		zap.Float64("amount", amount),
		zap.Int("losses_24h", len(s.recentLosses)),
		zap.Duration("cooldown", s.cooldownAfterLoss))
}

// RecentLossCount 24小时窗口内的亏损笔数
func (s *RiskService) RecentLossCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	return len(s.recentLosses)
}

// EmergencyShutdownCheck 紧急停机检查：当日亏损触及红线，或24小时内亏损达5笔。
// 仅提供判定，停机动作由调度方执行。
func (s *RiskService) EmergencyShutdownCheck() bool {
	metrics := s.portfolio.GetPerformanceMetrics()
	if metrics.DailyProfit <= -s.emergencyDailyLoss {
		s.logger.Error("emergency: daily loss limit breached",
			zap.Float64("daily_profit", metrics.DailyProfit),
			zap.Float64("limit", s.emergencyDailyLoss))
		return true
	}

	s.mu.Lock()
	s.pruneLocked(time.Now())
	lossCount := len(s.recentLosses)
	s.mu.Unlock()

	if lossCount >= 5 {
		s.logger.Error("emergency: too many losses in 24h window",
			zap.Int("losses", lossCount))
		return true
	}

	return false
}

// pruneLocked 清除24小时前的亏损记录，调用方需持锁
func (s *RiskService) pruneLocked(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	kept := s.recentLosses[:0]
	for _, l := range s.recentLosses {
		if l.Timestamp.After(cutoff) {
			kept = append(kept, l)
		}
	}
	s.recentLosses = kept
}
