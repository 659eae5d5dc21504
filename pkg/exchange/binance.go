package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
)

// BinanceExchange Binance现货API客户端
type BinanceExchange struct {
	client *binance.Client

	symbolsOnce sync.Once
	symbols     []string
	symbolsErr  error
}

// NewBinanceExchange 创建Binance现货客户端
func NewBinanceExchange(apiKey, secretKey, proxyURL string, testnet bool) *BinanceExchange {
	if testnet {
		binance.UseTestnet = true
	}

	var client *binance.Client
	if proxyURL != "" {
		client = binance.NewProxiedClient(apiKey, secretKey, proxyURL)
	} else {
		client = binance.NewClient(apiKey, secretKey)
	}

	return &BinanceExchange{client: client}
}

func (b *BinanceExchange) Name() string {
	return "binance"
}

// nativeSymbol 转换交易对格式：BTC/USDT -> BTCUSDT
func nativeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// GetTicker 获取买一/卖一/最新价
func (b *BinanceExchange) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	books, err := b.client.NewListBookTickersService().
		Symbol(nativeSymbol(symbol)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get book ticker: %w", err)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("no book ticker for %s", symbol)
	}

	prices, err := b.client.NewListPricesService().
		Symbol(nativeSymbol(symbol)).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get last price: %w", err)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no price for %s", symbol)
	}

	bid, _ := strconv.ParseFloat(books[0].BidPrice, 64)
	ask, _ := strconv.ParseFloat(books[0].AskPrice, 64)
	last, _ := strconv.ParseFloat(prices[0].Price, 64)

	return &Ticker{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Timestamp: time.Now(),
	}, nil
}

// GetRecentCloses 获取最近的K线收盘价序列
func (b *BinanceExchange) GetRecentCloses(ctx context.Context, symbol string, interval string, limit int) ([]float64, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(nativeSymbol(symbol)).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines: %w", err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		c, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid close price %q: %w", k.Close, err)
		}
		closes = append(closes, c)
	}
	return closes, nil
}

// GetBalance 获取账户余额
func (b *BinanceExchange) GetBalance(ctx context.Context) (Balance, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	balance := make(Balance, len(account.Balances))
	for _, item := range account.Balances {
		free, _ := strconv.ParseFloat(item.Free, 64)
		locked, _ := strconv.ParseFloat(item.Locked, 64)
		if free == 0 && locked == 0 {
			continue
		}
		balance[item.Asset] = Asset{
			Free:  free,
			Used:  locked,
			Total: free + locked,
		}
	}
	return balance, nil
}

// GetTradingSymbols 获取可交易的USDT交易对列表
func (b *BinanceExchange) GetTradingSymbols(ctx context.Context) ([]string, error) {
	b.symbolsOnce.Do(func() {
		info, err := b.client.NewExchangeInfoService().Do(ctx)
		if err != nil {
			b.symbolsErr = fmt.Errorf("failed to get exchange info: %w", err)
			return
		}
		for _, s := range info.Symbols {
			if s.Status != "TRADING" || s.QuoteAsset != "USDT" {
				continue
			}
			b.symbols = append(b.symbols, s.BaseAsset+"/"+s.QuoteAsset)
		}
	})
	return b.symbols, b.symbolsErr
}

// PlaceOrder 下单。市价单 price 传 0
func (b *BinanceExchange) PlaceOrder(ctx context.Context, symbol string, orderType OrderType, side OrderSide, amount float64, price float64) (*OrderResult, error) {
	service := b.client.NewCreateOrderService().
		Symbol(nativeSymbol(symbol)).
		Quantity(strconv.FormatFloat(amount, 'f', -1, 64))

	if side == OrderSideBuy {
		service = service.Side(binance.SideTypeBuy)
	} else {
		service = service.Side(binance.SideTypeSell)
	}

	if orderType == OrderTypeMarket {
		service = service.Type(binance.OrderTypeMarket)
	} else {
		service = service.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(strconv.FormatFloat(price, 'f', -1, 64))
	}

	res, err := service.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place %s %s order for %s: %w", orderType, side, symbol, err)
	}

	filled, _ := strconv.ParseFloat(res.ExecutedQuantity, 64)
	cost, _ := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)

	// 市价单的返回价格为0，用成交金额反推均价
	avgPrice, _ := strconv.ParseFloat(res.Price, 64)
	if avgPrice == 0 && filled > 0 {
		avgPrice = cost / filled
	}

	return &OrderResult{
		ID:        strconv.FormatInt(res.OrderID, 10),
		Symbol:    symbol,
		Type:      orderType,
		Side:      side,
		Amount:    amount,
		Price:     avgPrice,
		Cost:      cost,
		Filled:    filled,
		Status:    string(res.Status),
		Timestamp: time.Now(),
	}, nil
}

func (b *BinanceExchange) Close() error {
	return nil
}
