package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dushixiang/arbiter/internal/models"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeExchange 固定报价的测试交易所，可按方向注入下单失败
type fakeExchange struct {
	name     string
	bid, ask float64
	balances exchange.Balance

	mu       sync.Mutex
	failSide exchange.OrderSide
	orders   []exchange.OrderResult
}

func (f *fakeExchange) Name() string { return f.name }

func (f *fakeExchange) GetTicker(ctx context.Context, symbol string) (*exchange.Ticker, error) {
	return &exchange.Ticker{
		Symbol: symbol, Bid: f.bid, Ask: f.ask, Last: (f.bid + f.ask) / 2, Timestamp: time.Now(),
	}, nil
}

func (f *fakeExchange) GetTradingSymbols(ctx context.Context) ([]string, error) {
	return []string{"BTC/USDT"}, nil
}

func (f *fakeExchange) GetRecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	return nil, fmt.Errorf("not supported")
}

func (f *fakeExchange) GetBalance(ctx context.Context) (exchange.Balance, error) {
	return f.balances, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, symbol string, orderType exchange.OrderType, side exchange.OrderSide, amount, price float64) (*exchange.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if side == f.failSide {
		return nil, fmt.Errorf("order rejected")
	}

	executionPrice := f.ask
	if side == exchange.OrderSideSell {
		executionPrice = f.bid
	}
	order := exchange.OrderResult{
		ID: fmt.Sprintf("%s_%d", f.name, len(f.orders)+1),
		Symbol: symbol, Type: orderType, Side: side,
		Amount: amount, Price: executionPrice, Cost: amount * executionPrice,
		Filled: amount, Status: "FILLED", Timestamp: time.Now(),
	}
	f.orders = append(f.orders, order)
	return &order, nil
}

func (f *fakeExchange) Close() error { return nil }

func (f *fakeExchange) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func newArbitragePair(t *testing.T) (*ArbitrageStrategy, *fakeExchange, *fakeExchange) {
	t.Helper()

	cheap := &fakeExchange{
		name: "cheap", bid: 44900, ask: 45000,
		balances: exchange.Balance{"USDT": {Free: 100000, Total: 100000}},
	}
	rich := &fakeExchange{
		name: "rich", bid: 45500, ask: 45600,
		balances: exchange.Balance{"BTC": {Free: 1, Total: 1}},
	}

	manager := exchange.NewManager(zap.NewNop())
	manager.Register(cheap)
	manager.Register(rich)
	return NewArbitrageStrategy(newTestConfig(), manager, zap.NewNop()), cheap, rich
}

func TestScanOpportunitiesFindsSpread(t *testing.T) {
	t.Parallel()
	s, _, _ := newArbitragePair(t)

	opportunities := s.ScanOpportunities(context.Background())
	require.Len(t, opportunities, 1)

	opp := opportunities[0]
	assert.Equal(t, "BTC/USDT", opp.Symbol)
	assert.Equal(t, "cheap", opp.BuyExchange)
	assert.Equal(t, "rich", opp.SellExchange)
	assert.InDelta(t, 45000, opp.BuyPrice, 1e-9)
	assert.InDelta(t, 45500, opp.SellPrice, 1e-9)
	// (45500-45000)/45000*100
	assert.InDelta(t, 1.1111, opp.ProfitPercentage, 1e-3)
}

func TestScanOpportunitiesRequiresTwoExchanges(t *testing.T) {
	t.Parallel()

	manager := exchange.NewManager(zap.NewNop())
	manager.Register(exchange.NewPaperExchange(10000, zap.NewNop()))
	s := NewArbitrageStrategy(newTestConfig(), manager, zap.NewNop())

	assert.Empty(t, s.ScanOpportunities(context.Background()))
}

func TestExecuteOpportunityBothLegs(t *testing.T) {
	t.Parallel()
	s, cheap, rich := newArbitragePair(t)
	ctx := context.Background()

	opportunities := s.ScanOpportunities(ctx)
	require.Len(t, opportunities, 1)

	trade, err := s.ExecuteOpportunity(ctx, opportunities[0])
	require.NoError(t, err)
	require.NotNil(t, trade)

	assert.Equal(t, models.StrategyArbitrage, trade.Strategy)
	assert.Equal(t, "BTC/USDT", trade.Symbol)
	assert.Equal(t, "cheap->rich", trade.Exchange)
	assert.Positive(t, trade.Profit)
	assert.Equal(t, 1, cheap.orderCount())
	assert.Equal(t, 1, rich.orderCount())

	// 数量受两侧可用余额与仓位比例约束
	// min(100000*0.02/45000, 1*0.02) = 0.02
	assert.InDelta(t, 0.02, trade.Amount, 1e-9)
	// (45500-45000)*0.02
	assert.InDelta(t, 10, trade.Profit, 1e-9)
}

func TestExecuteOpportunityUnwindsOnSellFailure(t *testing.T) {
	t.Parallel()
	s, cheap, rich := newArbitragePair(t)
	ctx := context.Background()

	rich.failSide = exchange.OrderSideSell

	opportunities := s.ScanOpportunities(ctx)
	require.Len(t, opportunities, 1)

	trade, err := s.ExecuteOpportunity(ctx, opportunities[0])
	require.Error(t, err)
	assert.Nil(t, trade)

	// 买腿成交后被反向平仓，卖腿所在交易所没有成交
	assert.Equal(t, 2, cheap.orderCount())
	assert.Equal(t, 0, rich.orderCount())
	assert.Equal(t, exchange.OrderSideBuy, cheap.orders[0].Side)
	assert.Equal(t, exchange.OrderSideSell, cheap.orders[1].Side)
}

func TestExecuteOpportunityTooSmall(t *testing.T) {
	t.Parallel()
	s, _, _ := newArbitragePair(t)
	ctx := context.Background()

	opp := exchange.Opportunity{
		Symbol: "BTC/USDT", BuyExchange: "cheap", SellExchange: "rich",
		BuyPrice: 45000, SellPrice: 45500,
	}

	// 卖侧没有ETH余额，可交易数量为0
	opp.Symbol = "ETH/USDT"
	trade, err := s.ExecuteOpportunity(ctx, opp)
	require.Error(t, err)
	assert.Nil(t, trade)
	assert.Contains(t, err.Error(), "too small")
}
