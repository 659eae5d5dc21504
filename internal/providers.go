package internal

import (
	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"go.uber.org/zap"
)

// provideExchangeManager 按配置注册交易所，未配置任何交易所时启用纸面盘
func provideExchangeManager(conf *config.Config, logger *zap.Logger) *exchange.Manager {
	manager := exchange.NewManager(logger)

	for name, ec := range conf.Exchanges {
		if !ec.Enabled {
			continue
		}
		switch name {
		case "binance":
			manager.Register(exchange.NewBinanceExchange(ec.APIKey, ec.Secret, ec.ProxyURL, ec.Testnet))
			logger.Info("binance exchange registered",
				zap.Bool("testnet", ec.Testnet),
				zap.Bool("has_credentials", ec.APIKey != "" && ec.Secret != ""))
		case "paper":
			manager.Register(exchange.NewPaperExchange(0, logger))
			logger.Info("paper exchange registered")
		default:
			logger.Warn("unsupported exchange in config", zap.String("exchange", name))
		}
	}

	if manager.Count() == 0 {
		logger.Warn("no exchanges configured, falling back to paper trading")
		manager.Register(exchange.NewPaperExchange(0, logger))
	}

	return manager
}
