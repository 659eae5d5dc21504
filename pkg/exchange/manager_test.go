package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerRegisterAndGet(t *testing.T) {
	t.Parallel()

	m := NewManager(zap.NewNop())
	assert.Zero(t, m.Count())

	m.Register(NewPaperExchange(10000, zap.NewNop()))
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, []string{"paper"}, m.Names())

	ex, err := m.Get("paper")
	require.NoError(t, err)
	assert.Equal(t, "paper", ex.Name())

	_, err = m.Get("kraken")
	assert.Error(t, err)
}

func TestManagerPassThrough(t *testing.T) {
	t.Parallel()

	m := NewManager(zap.NewNop())
	m.Register(NewPaperExchange(10000, zap.NewNop()))
	ctx := context.Background()

	ticker, err := m.GetTicker(ctx, "paper", "BTC/USDT")
	require.NoError(t, err)
	assert.Positive(t, ticker.Last)

	balance, err := m.GetBalance(ctx, "paper")
	require.NoError(t, err)
	assert.InDelta(t, 10000, balance["USDT"].Free, 1e-9)

	_, err = m.GetTicker(ctx, "missing", "BTC/USDT")
	assert.Error(t, err)
}

func TestFindArbitrageOpportunitiesNeedsTwoExchanges(t *testing.T) {
	t.Parallel()

	m := NewManager(zap.NewNop())
	m.Register(NewPaperExchange(10000, zap.NewNop()))

	opportunities := m.FindArbitrageOpportunities(context.Background(), []string{"BTC/USDT"}, 0.1)
	assert.Empty(t, opportunities)
}

func TestManagerShutdown(t *testing.T) {
	t.Parallel()

	m := NewManager(zap.NewNop())
	m.Register(NewPaperExchange(10000, zap.NewNop()))
	require.Equal(t, 1, m.Count())

	m.Shutdown()
	assert.Zero(t, m.Count())
}
