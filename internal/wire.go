//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/handler"
	"github.com/dushixiang/arbiter/internal/notify"
	"github.com/dushixiang/arbiter/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewTradingHandler,
	)

	tradingSet = wire.NewSet(
		provideExchangeManager,
		notify.NewNotifier,
		service.NewPortfolioService,
		service.NewRiskService,
		service.NewReportService,
		service.NewArbitrageStrategy,
		service.NewMomentumStrategy,
		service.NewTradingEngine,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		tradingSet,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
