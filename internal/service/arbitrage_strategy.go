package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/models"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"go.uber.org/zap"
)

// 套利单笔最小成交量，低于此值不值得下单
const minTradeAmount = 0.001

// ArbitrageStrategy 跨交易所套利策略
type ArbitrageStrategy struct {
	logger   *zap.Logger
	exchange *exchange.Manager

	minProfitPercentage float64
	maxPositionSize     float64
}

// NewArbitrageStrategy 创建套利策略
func NewArbitrageStrategy(conf *config.Config, manager *exchange.Manager, logger *zap.Logger) *ArbitrageStrategy {
	return &ArbitrageStrategy{
		logger:              logger,
		exchange:            manager,
		minProfitPercentage: conf.Trading.TargetProfitArbitrage * 100,
		maxPositionSize:     conf.Trading.MaxPositionSize,
	}
}

// ScanOpportunities 扫描各交易所间的套利机会。
// 仅考虑至少在两家交易所同时可交易的交易对，限量10个以控制请求开销。
func (s *ArbitrageStrategy) ScanOpportunities(ctx context.Context) []exchange.Opportunity {
	names := s.exchange.Names()
	if len(names) < 2 {
		return nil
	}

	symbolCount := make(map[string]int)
	for _, name := range names {
		symbols, err := s.exchange.GetTradingSymbols(ctx, name)
		if err != nil {
			s.logger.Error("failed to get trading symbols",
				zap.String("exchange", name), zap.Error(err))
			continue
		}
		for _, symbol := range symbols {
			symbolCount[symbol]++
		}
	}

	var common []string
	for symbol, count := range symbolCount {
		if count >= 2 {
			common = append(common, symbol)
		}
		if len(common) >= 10 {
			break
		}
	}
	if len(common) == 0 {
		return nil
	}

	opportunities := s.exchange.FindArbitrageOpportunities(ctx, common, s.minProfitPercentage)
	for _, opp := range opportunities {
		s.logger.Info("arbitrage opportunity found",
			zap.String("symbol", opp.Symbol),
			zap.String("buy_exchange", opp.BuyExchange),
			zap.String("sell_exchange", opp.SellExchange),
			zap.Float64("profit_percentage", opp.ProfitPercentage))
	}
	return opportunities
}

// ExecuteOpportunity 执行套利：两腿市价单并发提交，都成交才算成功。
// 单腿失败时对已成交的一腿立即反向平仓，不留裸头寸。
func (s *ArbitrageStrategy) ExecuteOpportunity(ctx context.Context, opp exchange.Opportunity) (*models.Trade, error) {
	base, quote := exchange.SplitSymbol(opp.Symbol)
	if base == "" || quote == "" {
		return nil, fmt.Errorf("invalid symbol: %s", opp.Symbol)
	}

	buyBalance, err := s.exchange.GetBalance(ctx, opp.BuyExchange)
	if err != nil {
		return nil, fmt.Errorf("get balance on %s: %w", opp.BuyExchange, err)
	}
	sellBalance, err := s.exchange.GetBalance(ctx, opp.SellExchange)
	if err != nil {
		return nil, fmt.Errorf("get balance on %s: %w", opp.SellExchange, err)
	}

	availableQuote := buyBalance[quote].Free
	availableBase := sellBalance[base].Free

	maxBuyAmount := availableQuote * s.maxPositionSize / opp.BuyPrice
	maxSellAmount := availableBase * s.maxPositionSize

	amount := maxBuyAmount
	if maxSellAmount < amount {
		amount = maxSellAmount
	}
	if amount < minTradeAmount {
		return nil, fmt.Errorf("trade amount too small for %s: %.8f", opp.Symbol, amount)
	}

	s.logger.Info("executing arbitrage",
		zap.String("symbol", opp.Symbol),
		zap.Float64("amount", amount),
		zap.String("buy_exchange", opp.BuyExchange),
		zap.Float64("buy_price", opp.BuyPrice),
		zap.String("sell_exchange", opp.SellExchange),
		zap.Float64("sell_price", opp.SellPrice))

	// 两腿并发下单，降低价格漂移风险
	var (
		wg        sync.WaitGroup
		buyOrder  *exchange.OrderResult
		sellOrder *exchange.OrderResult
		buyErr    error
		sellErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		buyOrder, buyErr = s.exchange.PlaceOrder(ctx, opp.BuyExchange, opp.Symbol,
			exchange.OrderTypeMarket, exchange.OrderSideBuy, amount, 0)
	}()
	go func() {
		defer wg.Done()
		sellOrder, sellErr = s.exchange.PlaceOrder(ctx, opp.SellExchange, opp.Symbol,
			exchange.OrderTypeMarket, exchange.OrderSideSell, amount, 0)
	}()
	wg.Wait()

	if buyErr != nil || sellErr != nil {
		s.unwind(ctx, opp, amount, buyOrder, buyErr, sellOrder, sellErr)
		return nil, fmt.Errorf("arbitrage leg failed: buy=%v sell=%v", buyErr, sellErr)
	}

	buyCost := buyOrder.Cost
	if buyCost == 0 {
		buyCost = amount * opp.BuyPrice
	}
	sellRevenue := sellOrder.Cost
	if sellRevenue == 0 {
		sellRevenue = amount * opp.SellPrice
	}
	profit := sellRevenue - buyCost

	profitPercentage := 0.0
	if buyCost > 0 {
		profitPercentage = profit / buyCost * 100
	}

	s.logger.Info("arbitrage executed",
		zap.String("symbol", opp.Symbol),
		zap.Float64("profit", profit),
		zap.Float64("profit_percentage", profitPercentage))

	return &models.Trade{
		Timestamp:        time.Now(),
		Strategy:         models.StrategyArbitrage,
		Symbol:           opp.Symbol,
		Exchange:         fmt.Sprintf("%s->%s", opp.BuyExchange, opp.SellExchange),
		Action:           models.ActionSell,
		Amount:           amount,
		Price:            sellOrder.Price,
		Cost:             buyCost,
		Profit:           profit,
		ProfitPercentage: profitPercentage,
		OrderID:          fmt.Sprintf("%s/%s", buyOrder.ID, sellOrder.ID),
		Notes:            fmt.Sprintf("buy %s@%.4f sell %s@%.4f", opp.BuyExchange, buyOrder.Price, opp.SellExchange, sellOrder.Price),
	}, nil
}

// unwind 对已成交的一腿下反向市价单平仓
func (s *ArbitrageStrategy) unwind(ctx context.Context, opp exchange.Opportunity, amount float64,
	buyOrder *exchange.OrderResult, buyErr error, sellOrder *exchange.OrderResult, sellErr error) {

	if buyErr == nil && buyOrder != nil {
		s.logger.Warn("sell leg failed, unwinding buy leg",
			zap.String("symbol", opp.Symbol),
			zap.String("exchange", opp.BuyExchange),
			zap.Error(sellErr))
		if _, err := s.exchange.PlaceOrder(ctx, opp.BuyExchange, opp.Symbol,
			exchange.OrderTypeMarket, exchange.OrderSideSell, amount, 0); err != nil {
			s.logger.Error("failed to unwind buy leg, naked position remains",
				zap.String("symbol", opp.Symbol),
				zap.String("exchange", opp.BuyExchange),
				zap.Float64("amount", amount),
				zap.Error(err))
		}
	}
	if sellErr == nil && sellOrder != nil {
		s.logger.Warn("buy leg failed, unwinding sell leg",
			zap.String("symbol", opp.Symbol),
			zap.String("exchange", opp.SellExchange),
			zap.Error(buyErr))
		if _, err := s.exchange.PlaceOrder(ctx, opp.SellExchange, opp.Symbol,
			exchange.OrderTypeMarket, exchange.OrderSideBuy, amount, 0); err != nil {
			s.logger.Error("failed to unwind sell leg, naked position remains",
				zap.String("symbol", opp.Symbol),
				zap.String("exchange", opp.SellExchange),
				zap.Float64("amount", amount),
				zap.Error(err))
		}
	}
}
