package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/arbiter/internal/models"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
)

const performanceReportTemplate = `📊 Performance Report
Generated: {{generated_at}}

=== Overview ===
Uptime: {{uptime_hours}} hours
Total Trades: {{total_trades}} ({{daily_trades}} today)
Completed: {{completed_trades}} | Wins: {{winning_trades}} | Losses: {{losing_trades}}
Win Rate: {{win_rate}}%

=== Profit & Loss ===
Daily Profit: ${{daily_profit}}
Total Profit: ${{total_profit}}
Total Volume: ${{total_volume}}
Largest Win: ${{largest_win}}
Largest Loss: ${{largest_loss}}
Avg Profit/Trade: ${{avg_profit_per_trade}}

=== Rates ===
Trades/Hour: {{trades_per_hour}}
Profit/Hour: ${{profit_per_hour}}

=== Strategy Breakdown ===
Arbitrage: {{arbitrage_trades}} | Momentum: {{momentum_trades}} | Manual: {{manual_trades}}

=== Daily Limits ===
Remaining Trades Today: {{remaining_daily_trades}}
Remaining Loss Allowance: ${{remaining_daily_loss_allowance}}

=== Recent Trades (7d) ===
{{recent_trades}}`

// ReportService 绩效报告生成。纯格式化，无独立状态。
type ReportService struct {
	logger    *zap.Logger
	portfolio *PortfolioService
}

func NewReportService(portfolio *PortfolioService, logger *zap.Logger) *ReportService {
	return &ReportService{
		logger:    logger,
		portfolio: portfolio,
	}
}

// GeneratePerformanceReport 基于台账快照与最近7天交易生成报告文本
func (s *ReportService) GeneratePerformanceReport(ctx context.Context) string {
	metrics := s.portfolio.GetPerformanceMetrics()
	trades := s.portfolio.GetTradeHistory(ctx, 7, 10)
	strategyCounts := s.portfolio.StrategyCounts(ctx)

	tmpl := fasttemplate.New(performanceReportTemplate, "{{", "}}")
	return tmpl.ExecuteString(map[string]interface{}{
		"generated_at":                   time.Now().Format("2006-01-02 15:04:05"),
		"uptime_hours":                   fmt.Sprintf("%.1f", metrics.UptimeHours),
		"total_trades":                   fmt.Sprintf("%d", metrics.TotalTrades),
		"daily_trades":                   fmt.Sprintf("%d", metrics.DailyTrades),
		"completed_trades":               fmt.Sprintf("%d", metrics.CompletedTrades),
		"winning_trades":                 fmt.Sprintf("%d", metrics.WinningTrades),
		"losing_trades":                  fmt.Sprintf("%d", metrics.LosingTrades),
		"win_rate":                       fmt.Sprintf("%.1f", metrics.WinRate),
		"daily_profit":                   fmt.Sprintf("%.2f", metrics.DailyProfit),
		"total_profit":                   fmt.Sprintf("%.2f", metrics.TotalProfit),
		"total_volume":                   fmt.Sprintf("%.2f", metrics.TotalVolume),
		"largest_win":                    fmt.Sprintf("%.2f", metrics.LargestWin),
		"largest_loss":                   fmt.Sprintf("%.2f", metrics.LargestLoss),
		"avg_profit_per_trade":           fmt.Sprintf("%.2f", metrics.AvgProfitPerTrade),
		"trades_per_hour":                fmt.Sprintf("%.2f", metrics.TradesPerHour),
		"profit_per_hour":                fmt.Sprintf("%.2f", metrics.ProfitPerHour),
		"arbitrage_trades":               fmt.Sprintf("%d", strategyCounts[models.StrategyArbitrage]),
		"momentum_trades":                fmt.Sprintf("%d", strategyCounts[models.StrategyMomentum]),
		"manual_trades":                  fmt.Sprintf("%d", strategyCounts[models.StrategyManual]),
		"remaining_daily_trades":         fmt.Sprintf("%d", metrics.RemainingDailyTrades),
		"remaining_daily_loss_allowance": fmt.Sprintf("%.2f", metrics.RemainingDailyLossAllowance),
		"recent_trades":                  formatRecentTrades(trades),
	})
}

func formatRecentTrades(trades []models.Trade) string {
	if len(trades) == 0 {
		return "(no trades)"
	}

	var sb strings.Builder
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s %s %s %s %.6f @ %.4f",
			t.Timestamp.Format("01-02 15:04"),
			t.Strategy, t.Action, t.Symbol, t.Amount, t.Price))
		if t.Profit != 0 {
			sb.WriteString(fmt.Sprintf(" (P/L: $%.2f)", t.Profit))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
