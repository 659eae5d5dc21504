package exchange

import "context"

// Exchange 交易所接口，定义策略层依赖的全部能力
type Exchange interface {
	// Name 返回交易所标识，如 binance、paper
	Name() string

	// 市场数据
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)
	GetTradingSymbols(ctx context.Context) ([]string, error)
	GetRecentCloses(ctx context.Context, symbol string, interval string, limit int) ([]float64, error)

	// 账户信息
	GetBalance(ctx context.Context) (Balance, error)

	// 订单操作。市价单 price 传 0
	PlaceOrder(ctx context.Context, symbol string, orderType OrderType, side OrderSide, amount float64, price float64) (*OrderResult, error)

	// Close 关闭连接
	Close() error
}
