package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGeneratePerformanceReportEmpty(t *testing.T) {
	t.Parallel()
	portfolio := newTestPortfolio(t)
	report := NewReportService(portfolio, zap.NewNop())

	text := report.GeneratePerformanceReport(context.Background())
	assert.Contains(t, text, "Performance Report")
	assert.Contains(t, text, "Total Trades: 0")
	assert.Contains(t, text, "(no trades)")
}

func TestGeneratePerformanceReportWithTrades(t *testing.T) {
	t.Parallel()
	portfolio := newTestPortfolio(t)
	report := NewReportService(portfolio, zap.NewNop())
	ctx := context.Background()

	portfolio.RecordTrade(ctx, buyTrade("BTC/USDT", 0.01, 45000))
	portfolio.RecordTrade(ctx, sellTrade("BTC/USDT", 0.01, 46000, 10))

	text := report.GeneratePerformanceReport(ctx)
	assert.Contains(t, text, "Total Trades: 2")
	assert.Contains(t, text, "Win Rate: 100.0%")
	assert.Contains(t, text, "Daily Profit: $10.00")
	assert.Contains(t, text, "Largest Win: $10.00")
	assert.Contains(t, text, "BTC/USDT")
	assert.Contains(t, text, "(P/L: $10.00)")
	assert.Contains(t, text, "Arbitrage: 0 | Momentum: 2 | Manual: 0")
	assert.NotContains(t, text, "{{")
}
