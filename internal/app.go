package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/handler"
	"github.com/dushixiang/arbiter/internal/models"
	"github.com/dushixiang/arbiter/internal/notify"
	"github.com/dushixiang/arbiter/internal/service"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"github.com/dushixiang/arbiter/pkg/nostd"
	"github.com/dushixiang/arbiter/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewArbiterApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewArbiterApp() orz.Application {
	return &ArbiterApp{}
}

var _ orz.Application = (*ArbiterApp)(nil)

type AppComponents struct {
	TradingHandler *handler.TradingHandler

	TradingEngine     *service.TradingEngine
	PortfolioService  *service.PortfolioService
	RiskService       *service.RiskService
	ReportService     *service.ReportService
	ArbitrageStrategy *service.ArbitrageStrategy
	MomentumStrategy  *service.MomentumStrategy
	ExchangeManager   *exchange.Manager
	Notifier          *notify.Notifier
}

type ArbiterApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *ArbiterApp) GetComponents() *AppComponents {
	return r.components
}

func (r *ArbiterApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.ApplyDefaults()

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Trade{}, models.DailyStat{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		if r.components.TradingHandler != nil {
			r.components.TradingHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *ArbiterApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Arbiter Trading System Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.TradingEngine == nil {
		return fmt.Errorf("trading engine not available, please check exchange configuration")
	}

	logger.Info("Trading engine initialized, starting...",
		zap.Strings("exchanges", components.ExchangeManager.Names()))

	go func() {
		if err := components.TradingEngine.Start(context.Background()); err != nil {
			logger.Error("trading engine error", zap.Error(err))
		}
	}()
	return nil
}
