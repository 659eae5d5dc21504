package exchange

import (
	"strings"
	"time"
)

// 通用交易类型定义，独立于任何特定交易所
// 这样可以方便地支持多个交易所（币安、Kraken、纸面模拟等）

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"  // 限价单
	OrderTypeMarket OrderType = "market" // 市价单
)

func (s OrderSide) String() string {
	return string(s)
}

func (o OrderType) String() string {
	return string(o)
}

// Ticker 行情快照
type Ticker struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderResult 下单结果
type OrderResult struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Type      OrderType `json:"type"`
	Side      OrderSide `json:"side"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`   // 实际成交金额
	Filled    float64   `json:"filled"` // 已成交数量
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Asset 单币种余额
type Asset struct {
	Free  float64 `json:"free"`
	Used  float64 `json:"used"`
	Total float64 `json:"total"`
}

// Balance 账户余额，币种 -> 余额明细
type Balance map[string]Asset

// Opportunity 跨交易所套利机会
type Opportunity struct {
	Symbol           string    `json:"symbol"`
	BuyExchange      string    `json:"buy_exchange"`
	SellExchange     string    `json:"sell_exchange"`
	BuyPrice         float64   `json:"buy_price"`
	SellPrice        float64   `json:"sell_price"`
	ProfitAmount     float64   `json:"profit_amount"`
	ProfitPercentage float64   `json:"profit_percentage"`
	Timestamp        time.Time `json:"timestamp"`
}

// SplitSymbol 拆分交易对，如 BTC/USDT -> (BTC, USDT)
func SplitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 {
		return symbol, ""
	}
	return parts[0], parts[1]
}
