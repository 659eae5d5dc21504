package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLast(t *testing.T) {
	t.Parallel()

	s := []float64{1, 2, 3, 4}
	assert.Equal(t, 4.0, Last(s, 0))
	assert.Equal(t, 3.0, Last(s, 1))
	assert.Equal(t, 1.0, Last(s, 3))
}

func TestCrossoverAndCrossunder(t *testing.T) {
	t.Parallel()

	fast := []float64{1, 3}
	slow := []float64{2, 2}
	assert.True(t, Crossover(fast, slow))
	assert.False(t, Crossunder(fast, slow))

	fast = []float64{3, 1}
	assert.False(t, Crossover(fast, slow))
	assert.True(t, Crossunder(fast, slow))
}

func TestHighestLowest(t *testing.T) {
	t.Parallel()

	s := []float64{5, 9, 2, 7, 4}
	assert.Equal(t, 9.0, Highest(s, 5))
	assert.Equal(t, 2.0, Lowest(s, 5))

	// 只看最近3个值
	assert.Equal(t, 7.0, Highest(s, 3))
	assert.Equal(t, 2.0, Lowest(s, 3))
}

func TestIndicatorsProduceSeries(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 100)
	price := 100.0
	for i := range closes {
		if i%2 == 0 {
			price *= 1.01
		} else {
			price *= 0.995
		}
		closes[i] = price
	}

	rsi := RSI(closes, 14)
	require.Len(t, rsi, len(closes))
	last := Last(rsi, 0)
	assert.GreaterOrEqual(t, last, 0.0)
	assert.LessOrEqual(t, last, 100.0)

	macd, signal, hist := MACD(closes, 12, 26, 9)
	require.Len(t, macd, len(closes))
	require.Len(t, signal, len(closes))
	require.Len(t, hist, len(closes))
	assert.InDelta(t, Last(macd, 0)-Last(signal, 0), Last(hist, 0), 1e-9)

	upper, middle, lower := BBands(closes, 20, 2)
	require.Len(t, middle, len(closes))
	assert.Greater(t, Last(upper, 0), Last(middle, 0))
	assert.Less(t, Last(lower, 0), Last(middle, 0))

	sma := SMA(closes, 20)
	assert.Positive(t, Last(sma, 0))
}
