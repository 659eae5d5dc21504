package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/dushixiang/arbiter/internal/service"
	"github.com/dushixiang/arbiter/internal/xe"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// TradingHandler 交易系统HTTP处理器
type TradingHandler struct {
	engine    *service.TradingEngine
	portfolio *service.PortfolioService
	risk      *service.RiskService
	report    *service.ReportService
	momentum  *service.MomentumStrategy
	logger    *zap.Logger

	loopCancel context.CancelFunc
}

// NewTradingHandler 创建交易处理器
func NewTradingHandler(
	engine *service.TradingEngine,
	portfolio *service.PortfolioService,
	risk *service.RiskService,
	report *service.ReportService,
	momentum *service.MomentumStrategy,
	logger *zap.Logger,
) *TradingHandler {
	return &TradingHandler{
		engine:    engine,
		portfolio: portfolio,
		risk:      risk,
		report:    report,
		momentum:  momentum,
		logger:    logger,
	}
}

// GetStatus 获取引擎状态与绩效概览
// GET /api/trading/status
func (h *TradingHandler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"engine":  h.engine.GetStatus(),
		"metrics": h.portfolio.GetPerformanceMetrics(),
		"limits":  h.portfolio.CheckTradingLimits(),
	})
}

// GetMetrics 获取绩效快照
// GET /api/trading/metrics
func (h *TradingHandler) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.portfolio.GetPerformanceMetrics())
}

// GetTrades 获取交易历史
// GET /api/trading/trades?days=7&limit=50
func (h *TradingHandler) GetTrades(c echo.Context) error {
	ctx := c.Request().Context()

	// days=0 表示不限时间窗口
	days := 7
	if d := c.QueryParam("days"); d != "" {
		days = cast.ToInt(d)
	}
	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 50
	}

	trades := h.portfolio.GetTradeHistory(ctx, days, limit)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// GetDailySummary 获取指定日期的统计
// GET /api/trading/daily?date=2026-08-30
func (h *TradingHandler) GetDailySummary(c echo.Context) error {
	ctx := c.Request().Context()

	date := time.Now()
	if d := c.QueryParam("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			return xe.ErrInvalidParams
		}
		date = parsed
	}

	stat, ok := h.portfolio.GetDailySummary(ctx, date)
	if !ok {
		return xe.ErrStatNotFound
	}
	return c.JSON(http.StatusOK, stat)
}

// GetDailyHistory 获取最近若干天的每日统计
// GET /api/trading/history?days=7
func (h *TradingHandler) GetDailyHistory(c echo.Context) error {
	ctx := c.Request().Context()

	days := cast.ToInt(c.QueryParam("days"))
	if days <= 0 {
		days = 7
	}

	stats := h.portfolio.GetDailyHistory(ctx, days)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(stats),
		"days":  stats,
	})
}

// GetPositions 获取动量策略当前持仓
// GET /api/trading/positions
func (h *TradingHandler) GetPositions(c echo.Context) error {
	positions := h.momentum.Positions()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(positions),
		"positions": positions,
	})
}

// GetReport 获取完整绩效报告
// GET /api/trading/report
func (h *TradingHandler) GetReport(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"report": h.report.GeneratePerformanceReport(ctx),
	})
}

// GetRiskState 获取风控状态
// GET /api/trading/risk
func (h *TradingHandler) GetRiskState(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"losses_24h": h.risk.RecentLossCount(),
		"emergency":  h.risk.EmergencyShutdownCheck(),
	})
}

// Start 启动交易引擎
// POST /api/trading/start
func (h *TradingHandler) Start(c echo.Context) error {
	if h.engine.IsRunning() {
		return xe.ErrEngineRunning
	}

	var ctx context.Context
	ctx, h.loopCancel = context.WithCancel(context.Background())

	go func() {
		if err := h.engine.Start(ctx); err != nil {
			h.logger.Error("trading engine error", zap.Error(err))
		}
	}()

	h.logger.Info("trading engine started via API")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "trading engine started",
	})
}

// Stop 停止交易引擎
// POST /api/trading/stop
func (h *TradingHandler) Stop(c echo.Context) error {
	if !h.engine.IsRunning() {
		return xe.ErrEngineNotRunning
	}

	h.engine.Stop()
	if h.loopCancel != nil {
		h.loopCancel()
	}

	h.logger.Info("trading engine stopped via API")
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "trading engine stopped",
	})
}

// RegisterRoutes 注册路由
func (h *TradingHandler) RegisterRoutes(g *echo.Group) {
	trading := g.Group("/trading")

	trading.GET("/status", h.GetStatus)
	trading.GET("/metrics", h.GetMetrics)
	trading.GET("/trades", h.GetTrades)
	trading.GET("/daily", h.GetDailySummary)
	trading.GET("/history", h.GetDailyHistory)
	trading.GET("/positions", h.GetPositions)
	trading.GET("/report", h.GetReport)
	trading.GET("/risk", h.GetRiskState)

	trading.POST("/start", h.Start)
	trading.POST("/stop", h.Stop)
}
