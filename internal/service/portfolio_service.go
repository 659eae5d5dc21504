package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/models"
	"github.com/dushixiang/arbiter/internal/repo"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PortfolioService 交易台账。独占管理交易记录与每日统计的持久化，
// 并维护进程生命周期内的运行计数器。
// 存储故障只记录日志并返回安全默认值，绝不中断交易循环。
type PortfolioService struct {
	logger *zap.Logger

	*orz.Service
	tradeRepo     *repo.TradeRepo
	dailyStatRepo *repo.DailyStatRepo

	dailyLossLimit  float64
	maxTradesPerDay int

	mu    sync.Mutex
	stats runningStats
}

// runningStats 运行计数器，仅通过 applyTrade 和 resetDaily 修改
type runningStats struct {
	DailyTrades   int
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	DailyProfit   float64
	TotalProfit   float64
	TotalVolume   float64
	LargestWin    float64
	LargestLoss   float64
	StartTime     time.Time
}

// applyTrade 运行计数器的唯一写入点。
// 盈亏为0的交易腿（如开仓买入）只计入活动量，不计入胜负。
func (s *runningStats) applyTrade(profit, volume float64) {
	s.TotalTrades++
	s.DailyTrades++
	s.TotalVolume += math.Abs(volume)

	if profit == 0 {
		return
	}

	s.DailyProfit += profit
	s.TotalProfit += profit

	if profit > 0 {
		s.WinningTrades++
		if profit > s.LargestWin {
			s.LargestWin = profit
		}
	} else {
		s.LosingTrades++
		if profit < s.LargestLoss {
			s.LargestLoss = profit
		}
	}
}

func (s *runningStats) resetDaily() {
	s.DailyTrades = 0
	s.DailyProfit = 0
}

// NewPortfolioService 创建交易台账服务
func NewPortfolioService(db *gorm.DB, conf *config.Config, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		logger:          logger,
		Service:         orz.NewService(db),
		tradeRepo:       repo.NewTradeRepo(db),
		dailyStatRepo:   repo.NewDailyStatRepo(db),
		dailyLossLimit:  conf.Trading.DailyLossLimit,
		maxTradesPerDay: conf.RiskManagement.MaxTradesPerDay,
		stats:           runningStats{StartTime: time.Now()},
	}
}

// PerformanceMetrics 绩效快照
type PerformanceMetrics struct {
	UptimeHours                 float64 `json:"uptime_hours"`
	TotalTrades                 int     `json:"total_trades"`
	DailyTrades                 int     `json:"daily_trades"`
	CompletedTrades             int     `json:"completed_trades"`
	WinningTrades               int     `json:"winning_trades"`
	LosingTrades                int     `json:"losing_trades"`
	WinRate                     float64 `json:"win_rate"`
	DailyProfit                 float64 `json:"daily_profit"`
	TotalProfit                 float64 `json:"total_profit"`
	TotalVolume                 float64 `json:"total_volume"`
	LargestWin                  float64 `json:"largest_win"`
	LargestLoss                 float64 `json:"largest_loss"`
	AvgProfitPerTrade           float64 `json:"avg_profit_per_trade"`
	TradesPerHour               float64 `json:"trades_per_hour"`
	ProfitPerHour               float64 `json:"profit_per_hour"`
	RemainingDailyTrades        int     `json:"remaining_daily_trades"`
	RemainingDailyLossAllowance float64 `json:"remaining_daily_loss_allowance"`
}

// TradingLimits 交易限制检查结果
type TradingLimits struct {
	CanTrade bool     `json:"can_trade"`
	Reasons  []string `json:"reasons"`
}

// RecordTrade 记录一笔完成的交易：校验、落库、刷新当日统计、更新计数器。
// 返回是否成功；存储失败不会向上传播。
func (s *PortfolioService) RecordTrade(ctx context.Context, trade *models.Trade) bool {
	if err := validateTrade(trade); err != nil {
		s.logger.Warn("invalid trade rejected", zap.Error(err))
		return false
	}

	if trade.ID == "" {
		trade.ID = ulid.Make().String()
	}
	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now()
	}

	if err := s.tradeRepo.Create(ctx, trade); err != nil {
		s.logger.Error("failed to record trade",
			zap.String("symbol", trade.Symbol),
			zap.String("action", trade.Action),
			zap.Error(err))
		return false
	}

	s.mu.Lock()
	s.stats.applyTrade(trade.Profit, trade.Cost)
	s.mu.Unlock()

	// 每笔交易后重算并覆盖当日统计行
	if err := s.refreshDailyStat(ctx, trade.Timestamp); err != nil {
		s.logger.Error("failed to refresh daily stats", zap.Error(err))
	}

	s.logger.Info("trade recorded",
		zap.String("id", trade.ID),
		zap.String("strategy", trade.Strategy),
		zap.String("symbol", trade.Symbol),
		zap.String("action", trade.Action),
		zap.Float64("profit", trade.Profit))
	return true
}

func validateTrade(trade *models.Trade) error {
	if trade == nil {
		return fmt.Errorf("trade is nil")
	}
	if trade.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if trade.Action != models.ActionBuy && trade.Action != models.ActionSell {
		return fmt.Errorf("invalid action: %q", trade.Action)
	}
	if trade.Amount <= 0 {
		return fmt.Errorf("amount must be positive: %f", trade.Amount)
	}
	if trade.Price <= 0 {
		return fmt.Errorf("price must be positive: %f", trade.Price)
	}
	return nil
}

// refreshDailyStat 从交易表聚合重算指定日期的统计行
func (s *PortfolioService) refreshDailyStat(ctx context.Context, at time.Time) error {
	dayStart := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var trades []models.Trade
	err := s.tradeRepo.GetDB(ctx).Table(s.tradeRepo.GetTableName()).
		Where("timestamp >= ? AND timestamp < ?", dayStart, dayEnd).
		Find(&trades).Error
	if err != nil {
		return err
	}

	stat := models.DailyStat{Date: datatypes.Date(dayStart)}
	for _, t := range trades {
		stat.TotalTrades++
		stat.DailyVolume += math.Abs(t.Cost)
		if t.Profit == 0 {
			continue
		}
		stat.DailyProfit += t.Profit
		if t.Profit > 0 {
			stat.WinningTrades++
			if t.Profit > stat.LargestWin {
				stat.LargestWin = t.Profit
			}
		} else {
			stat.LosingTrades++
			if t.Profit < stat.LargestLoss {
				stat.LargestLoss = t.Profit
			}
		}
	}

	return s.dailyStatRepo.Upsert(ctx, &stat)
}

// GetPerformanceMetrics 获取绩效快照。无交易时各项为0。
func (s *PortfolioService) GetPerformanceMetrics() PerformanceMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	completed := stats.WinningTrades + stats.LosingTrades

	winRate := 0.0
	avgProfit := 0.0
	if completed > 0 {
		winRate = float64(stats.WinningTrades) / float64(completed) * 100
		avgProfit = stats.TotalProfit / float64(completed)
	}

	// 运行时长按小时计，下限1小时，避免启动初期除零或指标虚高
	uptimeHours := time.Since(stats.StartTime).Hours()
	divisorHours := math.Max(uptimeHours, 1)

	remainingTrades := s.maxTradesPerDay - stats.DailyTrades
	if remainingTrades < 0 {
		remainingTrades = 0
	}
	remainingLoss := s.dailyLossLimit + stats.DailyProfit
	if remainingLoss < 0 {
		remainingLoss = 0
	}

	return PerformanceMetrics{
		UptimeHours:                 uptimeHours,
		TotalTrades:                 stats.TotalTrades,
		DailyTrades:                 stats.DailyTrades,
		CompletedTrades:             completed,
		WinningTrades:               stats.WinningTrades,
		LosingTrades:                stats.LosingTrades,
		WinRate:                     winRate,
		DailyProfit:                 stats.DailyProfit,
		TotalProfit:                 stats.TotalProfit,
		TotalVolume:                 stats.TotalVolume,
		LargestWin:                  stats.LargestWin,
		LargestLoss:                 stats.LargestLoss,
		AvgProfitPerTrade:           avgProfit,
		TradesPerHour:               float64(stats.TotalTrades) / divisorHours,
		ProfitPerHour:               stats.TotalProfit / divisorHours,
		RemainingDailyTrades:        remainingTrades,
		RemainingDailyLossAllowance: remainingLoss,
	}
}

// CheckTradingLimits 检查每日交易次数与亏损限制，两条原因可能同时出现
func (s *PortfolioService) CheckTradingLimits() TradingLimits {
	s.mu.Lock()
	dailyTrades := s.stats.DailyTrades
	dailyProfit := s.stats.DailyProfit
	s.mu.Unlock()

	limits := TradingLimits{CanTrade: true}

	if dailyTrades >= s.maxTradesPerDay {
		limits.CanTrade = false
		limits.Reasons = append(limits.Reasons,
			fmt.Sprintf("Daily trade limit reached (%d/%d)", dailyTrades, s.maxTradesPerDay))
	}

	if dailyProfit <= -s.dailyLossLimit {
		limits.CanTrade = false
		limits.Reasons = append(limits.Reasons,
			fmt.Sprintf("Daily loss limit reached ($%.2f/$%.2f)", dailyProfit, -s.dailyLossLimit))
	}

	return limits
}

// GetTradeHistory 获取最近 days 天的交易记录，按时间倒序。
// days<=0 时不限时间窗口。查询失败返回空列表。
func (s *PortfolioService) GetTradeHistory(ctx context.Context, days, limit int) []models.Trade {
	var trades []models.Trade
	var err error
	if days <= 0 {
		trades, err = s.tradeRepo.FindRecentTrades(ctx, limit)
	} else {
		since := time.Now().AddDate(0, 0, -days)
		trades, err = s.tradeRepo.FindSince(ctx, since, limit)
	}
	if err != nil {
		s.logger.Error("failed to get trade history", zap.Error(err))
		return nil
	}
	return trades
}

// StrategyCounts 按策略统计累计交易笔数
func (s *PortfolioService) StrategyCounts(ctx context.Context) map[string]int64 {
	counts := make(map[string]int64)
	for _, strategy := range []string{models.StrategyArbitrage, models.StrategyMomentum, models.StrategyManual} {
		count, err := s.tradeRepo.CountByStrategy(ctx, strategy)
		if err != nil {
			s.logger.Error("failed to count trades by strategy",
				zap.String("strategy", strategy), zap.Error(err))
			continue
		}
		counts[strategy] = count
	}
	return counts
}

// GetDailyHistory 获取最近 days 天的每日统计，按日期倒序。
// 查询失败返回空列表。
func (s *PortfolioService) GetDailyHistory(ctx context.Context, days int) []models.DailyStat {
	if days <= 0 {
		days = 7
	}
	stats, err := s.dailyStatRepo.FindRecent(ctx, days)
	if err != nil {
		s.logger.Error("failed to get daily history", zap.Error(err))
		return nil
	}
	return stats
}

// GetDailySummary 获取指定日期的统计，无记录时返回 false
func (s *PortfolioService) GetDailySummary(ctx context.Context, date time.Time) (models.DailyStat, bool) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	stat, err := s.dailyStatRepo.FindByDate(ctx, datatypes.Date(day))
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			s.logger.Error("failed to get daily summary", zap.Error(err))
		}
		return models.DailyStat{}, false
	}
	return stat, true
}

// ResetDailyStats 重置每日计数器，由调度器在日切时调用；台账自身不排程
func (s *PortfolioService) ResetDailyStats() {
	s.mu.Lock()
	s.stats.resetDaily()
	s.mu.Unlock()

	s.logger.Info("daily statistics reset for new trading day")
}
