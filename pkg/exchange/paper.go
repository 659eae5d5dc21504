package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 模拟行情的基准价格
var paperBasePrices = map[string]float64{
	"BTC/USDT": 45000,
	"ETH/USDT": 3000,
	"ADA/USDT": 0.5,
}

// PaperExchange 纸面交易所（模拟交易），不连接任何真实交易所。
// 行情为带轻微漂移的随机游走，订单立即按最新价全部成交。
type PaperExchange struct {
	logger *zap.Logger

	mu         sync.Mutex
	balances   map[string]float64 // 币种 -> 可用余额
	lastPrices map[string]float64 // symbol -> 最新模拟价格
	orderSeq   int64              // 订单ID计数器
	rng        *rand.Rand
}

// NewPaperExchange 创建纸面交易所，初始余额为USDT计价
func NewPaperExchange(initialBalance float64, logger *zap.Logger) *PaperExchange {
	if initialBalance <= 0 {
		initialBalance = 10000
	}

	lastPrices := make(map[string]float64, len(paperBasePrices))
	for symbol, price := range paperBasePrices {
		lastPrices[symbol] = price
	}

	return &PaperExchange{
		logger:     logger,
		balances:   map[string]float64{"USDT": initialBalance},
		lastPrices: lastPrices,
		orderSeq:   1000000, // 从1000000开始的模拟订单ID
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *PaperExchange) Name() string {
	return "paper"
}

// nextPrice 随机游走生成下一个价格（±2%）
func (p *PaperExchange) nextPrice(symbol string) float64 {
	price, ok := p.lastPrices[symbol]
	if !ok {
		price = 100
	}
	change := (p.rng.Float64()*4 - 2) / 100
	price *= 1 + change
	p.lastPrices[symbol] = price
	return price
}

// GetTicker 获取模拟行情
func (p *PaperExchange) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	last := p.nextPrice(symbol)
	return &Ticker{
		Symbol:    symbol,
		Bid:       last * 0.999,
		Ask:       last * 1.001,
		Last:      last,
		Timestamp: time.Now(),
	}, nil
}

// GetRecentCloses 生成模拟收盘价序列（带轻微上行偏移的随机游走）
func (p *PaperExchange) GetRecentCloses(ctx context.Context, symbol string, interval string, limit int) ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	base, ok := p.lastPrices[symbol]
	if !ok {
		base = 100
	}

	closes := make([]float64, 0, limit)
	price := base
	for i := 0; i < limit; i++ {
		change := p.rng.Float64()*0.045 - 0.02
		price *= 1 + change
		closes = append(closes, price)
	}
	return closes, nil
}

// GetBalance 获取模拟余额
func (p *PaperExchange) GetBalance(ctx context.Context) (Balance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	balance := make(Balance, len(p.balances))
	for currency, amount := range p.balances {
		balance[currency] = Asset{Free: amount, Total: amount}
	}
	return balance, nil
}

// GetTradingSymbols 返回支持的模拟交易对
func (p *PaperExchange) GetTradingSymbols(ctx context.Context) ([]string, error) {
	symbols := make([]string, 0, len(paperBasePrices))
	for symbol := range paperBasePrices {
		symbols = append(symbols, symbol)
	}
	return symbols, nil
}

// PlaceOrder 模拟下单，立即按最新价全部成交并更新余额
func (p *PaperExchange) PlaceOrder(ctx context.Context, symbol string, orderType OrderType, side OrderSide, amount float64, price float64) (*OrderResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("invalid order amount: %f", amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	executionPrice := price
	if orderType == OrderTypeMarket || executionPrice == 0 {
		executionPrice = p.nextPrice(symbol)
	}

	base, quote := SplitSymbol(symbol)
	if quote == "" {
		return nil, fmt.Errorf("invalid symbol: %s", symbol)
	}

	cost := amount * executionPrice

	switch side {
	case OrderSideBuy:
		if p.balances[quote] < cost {
			return nil, fmt.Errorf("insufficient %s balance: required %.2f, available %.2f", quote, cost, p.balances[quote])
		}
		p.balances[quote] -= cost
		p.balances[base] += amount
	case OrderSideSell:
		if p.balances[base] < amount {
			return nil, fmt.Errorf("insufficient %s balance: required %.8f, available %.8f", base, amount, p.balances[base])
		}
		p.balances[base] -= amount
		p.balances[quote] += cost
	default:
		return nil, fmt.Errorf("unknown order side: %s", side)
	}

	p.orderSeq++
	orderID := fmt.Sprintf("paper_%d", p.orderSeq)

	p.logger.Info("paper exchange: order filled",
		zap.String("order_id", orderID),
		zap.String("symbol", symbol),
		zap.String("side", side.String()),
		zap.Float64("amount", amount),
		zap.Float64("price", executionPrice))

	return &OrderResult{
		ID:        orderID,
		Symbol:    symbol,
		Type:      orderType,
		Side:      side,
		Amount:    amount,
		Price:     executionPrice,
		Cost:      cost,
		Filled:    amount,
		Status:    "FILLED",
		Timestamp: time.Now(),
	}, nil
}

func (p *PaperExchange) Close() error {
	return nil
}
