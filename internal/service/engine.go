package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/models"
	"github.com/dushixiang/arbiter/internal/notify"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"github.com/go-orz/orz"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	cycleInterval = 5 * time.Second
	// 交易受限时的日志节流，每120个周期（约10分钟）输出一次
	limitLogInterval = 120
	// 每小时一次的里程碑与绩效检查（720 * 5秒）
	hourlyCycleCount = 720
	// 完整绩效报告间隔
	fullReportInterval = 6 * time.Hour

	arbitrageScanInterval = 30 * time.Second
	momentumScanInterval  = 60 * time.Second
)

// 累计盈利里程碑，每个进程生命周期内各触发一次
var profitMilestones = []float64{50, 100, 250, 500, 1000, 2500, 5000}

// TradingEngine 交易调度引擎。每5秒一个周期驱动策略扫描、风控评估、
// 下单执行与结果记账；紧急停机为永久停止，需人工介入恢复。
type TradingEngine struct {
	logger *zap.Logger

	conf      config.TradingConf
	portfolio *PortfolioService
	risk      *RiskService
	report    *ReportService
	arbitrage *ArbitrageStrategy
	momentum  *MomentumStrategy
	exchange  *exchange.Manager
	notifier  *notify.Notifier

	mu         sync.Mutex
	isRunning  bool
	cycleCount int64
	startTime  time.Time
	stopChan   chan struct{}
	cancel     context.CancelFunc
	cron       *cron.Cron

	lastArbitrageScan time.Time
	lastMomentumScan  time.Time
	lastFullReport    time.Time
	firedMilestones   map[float64]struct{}
}

// NewTradingEngine 创建交易引擎
func NewTradingEngine(
	conf *config.Config,
	portfolio *PortfolioService,
	risk *RiskService,
	report *ReportService,
	arbitrage *ArbitrageStrategy,
	momentum *MomentumStrategy,
	manager *exchange.Manager,
	notifier *notify.Notifier,
	logger *zap.Logger,
) *TradingEngine {
	return &TradingEngine{
		logger:          logger,
		conf:            conf.Trading,
		portfolio:       portfolio,
		risk:            risk,
		report:          report,
		arbitrage:       arbitrage,
		momentum:        momentum,
		exchange:        manager,
		notifier:        notifier,
		firedMilestones: make(map[float64]struct{}),
	}
}

// Start 启动交易循环，阻塞直到 Stop 被调用或 ctx 取消。
// 停止后可重新启动，每次启动使用独立的停止通道与调度器。
func (t *TradingEngine) Start(ctx context.Context) error {
	// 每日零点重置日内计数器
	c := cron.New()
	if _, err := c.AddFunc("0 0 * * *", func() {
		t.portfolio.ResetDailyStats()
	}); err != nil {
		return fmt.Errorf("failed to schedule daily reset: %w", err)
	}

	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return fmt.Errorf("trading engine is already running")
	}
	t.isRunning = true
	t.startTime = time.Now()
	t.stopChan = make(chan struct{})
	t.cron = c
	ctx, t.cancel = context.WithCancel(ctx)
	stopChan := t.stopChan
	t.mu.Unlock()

	c.Start()

	t.logger.Info("trading engine started",
		zap.Bool("arbitrage", t.conf.EnableArbitrage),
		zap.Bool("momentum", t.conf.EnableMomentum),
		zap.Duration("cycle_interval", cycleInterval))

	t.notifier.SendSystemAlert("startup",
		"Trading engine is now active and scanning for opportunities", notify.LevelSuccess)

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.executeCycle(ctx)
		case <-stopChan:
			t.logger.Info("trading engine stopped")
			return nil
		case <-ctx.Done():
			t.mu.Lock()
			t.isRunning = false
			t.mu.Unlock()
			<-c.Stop().Done()
			t.logger.Info("trading engine stopped by context")
			return ctx.Err()
		}
	}
}

// Stop 优雅停止交易循环
func (t *TradingEngine) Stop() {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return
	}
	t.isRunning = false
	c, cancel, stopChan := t.cron, t.cancel, t.stopChan
	t.mu.Unlock()

	t.logger.Info("stopping trading engine...")

	if c != nil {
		<-c.Stop().Done()
	}
	if cancel != nil {
		cancel()
	}
	close(stopChan)

	t.sendShutdownSummary()
	t.exchange.Shutdown()
}

// executeCycle 执行一个交易周期，周期内任何故障只影响本周期
func (t *TradingEngine) executeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("trading cycle panicked", zap.Any("panic", r))
		}
	}()

	t.mu.Lock()
	t.cycleCount++
	cycle := t.cycleCount
	t.mu.Unlock()

	if t.risk.EmergencyShutdownCheck() {
		t.emergencyShutdown()
		return
	}

	limits := t.portfolio.CheckTradingLimits()
	if !limits.CanTrade {
		if cycle%limitLogInterval == 0 {
			t.logger.Info("trading paused",
				zap.String("reasons", strings.Join(limits.Reasons, ", ")))
		}
		return
	}

	if t.conf.EnableArbitrage {
		t.runArbitrageCycle(ctx)
	}

	if t.conf.EnableMomentum {
		t.runMomentumCycle(ctx)

		for _, action := range t.momentum.CheckPositions(ctx) {
			t.executeTradeAction(ctx, action, "position_management")
		}
	}

	if cycle%hourlyCycleCount == 0 {
		t.checkProfitMilestones()
		t.sendPerformanceUpdate(ctx)
	}
}

// runArbitrageCycle 套利扫描，限速30秒一次
func (t *TradingEngine) runArbitrageCycle(ctx context.Context) {
	now := time.Now()
	if now.Sub(t.lastArbitrageScan) < arbitrageScanInterval {
		return
	}
	t.lastArbitrageScan = now

	opportunities := t.arbitrage.ScanOpportunities(ctx)
	for _, opp := range opportunities {
		signal := Signal{
			Strategy:   models.StrategyArbitrage,
			Symbol:     opp.Symbol,
			Exchange:   opp.BuyExchange,
			Action:     models.ActionBuy,
			Confidence: 0.9,
		}
		assessment := t.risk.EvaluateTradeRisk(signal, t.accountBalance(ctx, opp.BuyExchange))
		if !assessment.Approved {
			t.logger.Warn("arbitrage trade rejected",
				zap.String("symbol", opp.Symbol),
				zap.String("warnings", strings.Join(assessment.Warnings, ", ")))
			continue
		}

		trade, err := t.arbitrage.ExecuteOpportunity(ctx, opp)
		if err != nil {
			t.logger.Error("arbitrage execution failed",
				zap.String("symbol", opp.Symbol), zap.Error(err))
			t.notifier.SendRiskAlert("arbitrage_failure",
				fmt.Sprintf("%s: %v", opp.Symbol, err))
			continue
		}
		t.processTradeResult(ctx, trade)
	}
}

// runMomentumCycle 动量扫描，限速60秒一次
func (t *TradingEngine) runMomentumCycle(ctx context.Context) {
	now := time.Now()
	if now.Sub(t.lastMomentumScan) < momentumScanInterval {
		return
	}
	t.lastMomentumScan = now

	for _, signal := range t.momentum.ScanSignals(ctx) {
		t.executeTradeAction(ctx, signal, "momentum_signal")
	}
}

// executeTradeAction 风控评估通过后执行动量信号
func (t *TradingEngine) executeTradeAction(ctx context.Context, signal Signal, source string) {
	assessment := t.risk.EvaluateTradeRisk(signal, t.accountBalance(ctx, signal.Exchange))
	if !assessment.Approved {
		t.logger.Warn("trade rejected",
			zap.String("source", source),
			zap.String("symbol", signal.Symbol),
			zap.String("warnings", strings.Join(assessment.Warnings, ", ")))
		return
	}

	trade, err := t.momentum.ExecuteSignal(ctx, signal)
	if err != nil {
		t.logger.Error("trade execution failed",
			zap.String("source", source),
			zap.String("symbol", signal.Symbol),
			zap.Error(err))
		return
	}
	if trade != nil {
		t.processTradeResult(ctx, trade)
	}
}

// processTradeResult 交易结果落账、告警、亏损计入风控
func (t *TradingEngine) processTradeResult(ctx context.Context, trade *models.Trade) {
	if !t.portfolio.RecordTrade(ctx, trade) {
		t.logger.Error("trade result not recorded",
			zap.String("symbol", trade.Symbol),
			zap.String("action", trade.Action))
	}

	t.notifier.SendTradeAlert(trade.Symbol, trade.Action, trade.Amount, trade.Price, trade.Profit)

	if trade.Profit < 0 {
		t.risk.RecordLoss(math.Abs(trade.Profit))
	}

	t.logger.Info("trade processed",
		zap.String("strategy", trade.Strategy),
		zap.String("action", trade.Action),
		zap.String("symbol", trade.Symbol))
}

// accountBalance 获取交易所可用USDT余额，失败时按0处理（从严风控）
func (t *TradingEngine) accountBalance(ctx context.Context, exchangeName string) float64 {
	balance, err := t.exchange.GetBalance(ctx, exchangeName)
	if err != nil {
		t.logger.Warn("failed to get account balance, assuming zero",
			zap.String("exchange", exchangeName), zap.Error(err))
		return 0
	}
	return balance["USDT"].Free
}

// checkProfitMilestones 检查累计盈利里程碑，每个阈值至多触发一次
func (t *TradingEngine) checkProfitMilestones() {
	metrics := t.portfolio.GetPerformanceMetrics()

	for _, milestone := range profitMilestones {
		if _, fired := t.firedMilestones[milestone]; fired {
			continue
		}
		if metrics.TotalProfit >= milestone {
			t.notifier.SendProfitMilestone(metrics.DailyProfit, metrics.TotalProfit)
			t.firedMilestones[milestone] = struct{}{}
			t.logger.Info("profit milestone reached",
				zap.Float64("milestone", milestone),
				zap.Float64("total_profit", metrics.TotalProfit))
		}
	}
}

// sendPerformanceUpdate 每小时发简报，每6小时发完整报告
func (t *TradingEngine) sendPerformanceUpdate(ctx context.Context) {
	now := time.Now()
	if t.lastFullReport.IsZero() || now.Sub(t.lastFullReport) >= fullReportInterval {
		report := t.report.GeneratePerformanceReport(ctx)
		t.notifier.SendSystemAlert("performance", report, notify.LevelInfo)
		t.lastFullReport = now
		return
	}

	metrics := t.portfolio.GetPerformanceMetrics()
	summary := fmt.Sprintf("Hourly Update - Profit: $%.2f | Trades: %d | Win Rate: %.1f%%",
		metrics.DailyProfit, metrics.DailyTrades, metrics.WinRate)
	t.notifier.SendSystemAlert("update", summary, notify.LevelInfo)
}

// emergencyShutdown 紧急停机，不自动恢复
func (t *TradingEngine) emergencyShutdown() {
	t.logger.Error("EMERGENCY SHUTDOWN INITIATED")

	t.notifier.SendSystemAlert("emergency",
		"EMERGENCY SHUTDOWN: Trading has been halted due to risk conditions", notify.LevelError)

	t.mu.Lock()
	running := t.isRunning
	t.isRunning = false
	c, stopChan := t.cron, t.stopChan
	t.mu.Unlock()

	if running {
		if c != nil {
			<-c.Stop().Done()
		}
		close(stopChan)
	}
}

func (t *TradingEngine) sendShutdownSummary() {
	metrics := t.portfolio.GetPerformanceMetrics()
	if metrics.TotalTrades == 0 {
		return
	}

	summary := fmt.Sprintf(`Trading Session Summary:
- Duration: %.1f hours
- Total Trades: %d
- Win Rate: %.1f%%
- Daily P&L: $%.2f
- Total P&L: $%.2f
- Trades per Hour: %.1f`,
		metrics.UptimeHours,
		metrics.TotalTrades,
		metrics.WinRate,
		metrics.DailyProfit,
		metrics.TotalProfit,
		metrics.TradesPerHour)

	t.notifier.SendSystemAlert("shutdown", summary, notify.LevelInfo)
}

// IsRunning 检查引擎是否在运行
func (t *TradingEngine) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// GetStatus 获取引擎状态
func (t *TradingEngine) GetStatus() orz.Map {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := orz.Map{
		"is_running":       t.isRunning,
		"cycle_count":      t.cycleCount,
		"enable_arbitrage": t.conf.EnableArbitrage,
		"enable_momentum":  t.conf.EnableMomentum,
		"exchanges":        t.exchange.Names(),
		"open_positions":   len(t.momentum.Positions()),
	}
	if !t.startTime.IsZero() {
		status["start_time"] = t.startTime
		status["elapsed_hours"] = time.Since(t.startTime).Hours()
	}
	return status
}
