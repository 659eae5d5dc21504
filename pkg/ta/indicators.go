package ta

import (
	talib "github.com/markcheno/go-talib"
)

func SMA(closes []float64, period int) []float64 {
	return talib.Sma(closes, period)
}

func EMA(closes []float64, period int) []float64 {
	return talib.Ema(closes, period)
}

func RSI(closes []float64, period int) []float64 {
	return talib.Rsi(closes, period)
}

func MACD(closes []float64, fast, slow, signal int) (macd, macdSignal, hist []float64) {
	return talib.Macd(closes, fast, slow, signal)
}

// BBands 布林带，上下轨使用相同的标准差倍数
func BBands(closes []float64, period int, dev float64) (upper, middle, lower []float64) {
	return talib.BBands(closes, period, dev, dev, talib.SMA)
}

func ATR(highs, lows, closes []float64, period int) []float64 {
	return talib.Atr(highs, lows, closes, period)
}
