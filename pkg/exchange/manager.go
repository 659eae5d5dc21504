package exchange

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// callTimeout 外部交易所调用的统一超时时间
const callTimeout = 5 * time.Second

// Manager 多交易所管理器，按名称路由请求并负责跨所套利扫描
type Manager struct {
	logger    *zap.Logger
	exchanges map[string]Exchange
}

// NewManager 创建交易所管理器
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		logger:    logger,
		exchanges: make(map[string]Exchange),
	}
}

// Register 注册一个交易所
func (m *Manager) Register(ex Exchange) {
	m.exchanges[ex.Name()] = ex
	m.logger.Info("exchange registered", zap.String("exchange", ex.Name()))
}

// Get 按名称获取交易所
func (m *Manager) Get(name string) (Exchange, error) {
	ex, ok := m.exchanges[name]
	if !ok {
		return nil, fmt.Errorf("exchange not found: %s", name)
	}
	return ex, nil
}

// Names 返回已注册的交易所名称，按字典序
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.exchanges))
	for name := range m.exchanges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count 已注册交易所数量
func (m *Manager) Count() int {
	return len(m.exchanges)
}

// GetTicker 获取指定交易所的行情
func (m *Manager) GetTicker(ctx context.Context, exchangeName, symbol string) (*Ticker, error) {
	ex, err := m.Get(exchangeName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return ex.GetTicker(ctx, symbol)
}

// PlaceOrder 在指定交易所下单
func (m *Manager) PlaceOrder(ctx context.Context, exchangeName, symbol string, orderType OrderType, side OrderSide, amount, price float64) (*OrderResult, error) {
	ex, err := m.Get(exchangeName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return ex.PlaceOrder(ctx, symbol, orderType, side, amount, price)
}

// GetBalance 获取指定交易所的余额
func (m *Manager) GetBalance(ctx context.Context, exchangeName string) (Balance, error) {
	ex, err := m.Get(exchangeName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return ex.GetBalance(ctx)
}

// GetTradingSymbols 获取指定交易所的可交易交易对
func (m *Manager) GetTradingSymbols(ctx context.Context, exchangeName string) ([]string, error) {
	ex, err := m.Get(exchangeName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return ex.GetTradingSymbols(ctx)
}

// GetRecentCloses 获取指定交易所的收盘价序列
func (m *Manager) GetRecentCloses(ctx context.Context, exchangeName, symbol, interval string, limit int) ([]float64, error) {
	ex, err := m.Get(exchangeName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return ex.GetRecentCloses(ctx, symbol, interval, limit)
}

// FindArbitrageOpportunities 扫描跨交易所价差。
// 对每个交易对取所有交易所的买一/卖一，当最高买价高于最低卖价
// 且利润比例不低于 minProfitPercentage 时记为一个机会。
func (m *Manager) FindArbitrageOpportunities(ctx context.Context, symbols []string, minProfitPercentage float64) []Opportunity {
	var opportunities []Opportunity

	if len(m.exchanges) < 2 {
		return opportunities
	}

	for _, symbol := range symbols {
		type quote struct {
			exchange string
			bid, ask float64
		}
		var quotes []quote

		for name := range m.exchanges {
			ticker, err := m.GetTicker(ctx, name, symbol)
			if err != nil {
				m.logger.Warn("failed to get ticker for arbitrage scan",
					zap.String("exchange", name),
					zap.String("symbol", symbol),
					zap.Error(err))
				continue
			}
			quotes = append(quotes, quote{exchange: name, bid: ticker.Bid, ask: ticker.Ask})
		}

		if len(quotes) < 2 {
			continue
		}

		highestBid := quotes[0]
		lowestAsk := quotes[0]
		for _, q := range quotes[1:] {
			if q.bid > highestBid.bid {
				highestBid = q
			}
			if q.ask < lowestAsk.ask {
				lowestAsk = q
			}
		}

		if highestBid.bid <= lowestAsk.ask || lowestAsk.ask <= 0 {
			continue
		}

		profitAmount := highestBid.bid - lowestAsk.ask
		profitPercentage := profitAmount / lowestAsk.ask * 100
		if profitPercentage < minProfitPercentage {
			continue
		}

		opportunities = append(opportunities, Opportunity{
			Symbol:           symbol,
			BuyExchange:      lowestAsk.exchange,
			SellExchange:     highestBid.exchange,
			BuyPrice:         lowestAsk.ask,
			SellPrice:        highestBid.bid,
			ProfitAmount:     profitAmount,
			ProfitPercentage: profitPercentage,
			Timestamp:        time.Now(),
		})
	}

	return opportunities
}

// Shutdown 关闭所有交易所连接
func (m *Manager) Shutdown() {
	for name, ex := range m.exchanges {
		if err := ex.Close(); err != nil {
			m.logger.Error("failed to close exchange", zap.String("exchange", name), zap.Error(err))
		}
	}
	m.exchanges = make(map[string]Exchange)
	m.logger.Info("all exchange connections closed")
}
