package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/arbiter/internal/config"
	"github.com/dushixiang/arbiter/internal/models"
	"github.com/dushixiang/arbiter/pkg/exchange"
	"github.com/dushixiang/arbiter/pkg/ta"
	"go.uber.org/zap"
)

// 技术分析参数
const (
	rsiPeriod     = 14
	rsiOverbought = 70
	rsiOversold   = 30
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	bbPeriod      = 20
	bbStd         = 2.0

	maxHoldDuration = 24 * time.Hour
)

// 平仓原因
const (
	ExitReasonStopLoss   = "stop_loss"
	ExitReasonTakeProfit = "take_profit"
	ExitReasonTimeExit   = "time_exit"
)

// Position 动量策略持仓，仅存于内存，进程重启即清空
type Position struct {
	Symbol      string    `json:"symbol"`
	Exchange    string    `json:"exchange"`
	Amount      float64   `json:"amount"`
	EntryPrice  float64   `json:"entry_price"`
	EntryTime   time.Time `json:"entry_time"`
	TargetPrice float64   `json:"target_price"`
	StopPrice   float64   `json:"stop_price"`
	OrderID     string    `json:"order_id"`
}

// momentumIndicators 单个交易对的指标快照
type momentumIndicators struct {
	CurrentPrice float64
	RSI          float64
	MACD         float64
	MACDSignal   float64
	MACDHist     float64
	BBUpper      float64
	BBLower      float64
	SMA20        float64
	SMA50        float64
}

// MomentumStrategy 动量策略。RSI/MACD/布林带/均线四路投票产生信号，
// 持仓带止损止盈与24小时强制退出。
type MomentumStrategy struct {
	logger   *zap.Logger
	exchange *exchange.Manager

	targetProfit    float64
	maxPositionSize float64
	stopLoss        float64

	mu        sync.Mutex
	positions map[string]*Position
}

// NewMomentumStrategy 创建动量策略
func NewMomentumStrategy(conf *config.Config, manager *exchange.Manager, logger *zap.Logger) *MomentumStrategy {
	return &MomentumStrategy{
		logger:          logger,
		exchange:        manager,
		targetProfit:    conf.Trading.TargetProfitMomentum,
		maxPositionSize: conf.Trading.MaxPositionSize,
		stopLoss:        conf.RiskManagement.StopLossPercentage,
		positions:       make(map[string]*Position),
	}
}

func positionKey(exchangeName, symbol string) string {
	return exchangeName + "_" + symbol
}

// ScanSignals 在首个交易所的前5个交易对上扫描动量信号，
// 只保留置信度高于0.6的非持有信号
func (s *MomentumStrategy) ScanSignals(ctx context.Context) []Signal {
	names := s.exchange.Names()
	if len(names) == 0 {
		return nil
	}
	exchangeName := names[0]

	symbols, err := s.exchange.GetTradingSymbols(ctx, exchangeName)
	if err != nil {
		s.logger.Error("failed to get trading symbols",
			zap.String("exchange", exchangeName), zap.Error(err))
		return nil
	}
	if len(symbols) > 5 {
		symbols = symbols[:5]
	}

	var signals []Signal
	for _, symbol := range symbols {
		closes, err := s.exchange.GetRecentCloses(ctx, exchangeName, symbol, "1m", 100)
		if err != nil {
			s.logger.Error("failed to fetch closes",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		if len(closes) < 50 {
			continue
		}

		indicators := calculateIndicators(closes)
		if indicators == nil {
			continue
		}

		signal := s.generateSignal(*indicators)
		if signal.Action == "hold" || signal.Confidence <= 0.6 {
			continue
		}
		signal.Strategy = models.StrategyMomentum
		signal.Symbol = symbol
		signal.Exchange = exchangeName
		signals = append(signals, signal)

		s.logger.Info("momentum signal",
			zap.String("symbol", symbol),
			zap.String("action", signal.Action),
			zap.Float64("confidence", signal.Confidence),
			zap.String("reason", signal.Reason))
	}

	return signals
}

// calculateIndicators 计算指标快照，数据不足返回 nil
func calculateIndicators(closes []float64) *momentumIndicators {
	if len(closes) < macdSlow {
		return nil
	}

	rsi := ta.RSI(closes, rsiPeriod)
	macd, signal, hist := ta.MACD(closes, macdFast, macdSlow, macdSignal)
	upper, _, lower := ta.BBands(closes, bbPeriod, bbStd)
	sma20 := ta.SMA(closes, 20)
	sma50 := ta.SMA(closes, 50)

	return &momentumIndicators{
		CurrentPrice: ta.Last(closes, 0),
		RSI:          ta.Last(rsi, 0),
		MACD:         ta.Last(macd, 0),
		MACDSignal:   ta.Last(signal, 0),
		MACDHist:     ta.Last(hist, 0),
		BBUpper:      ta.Last(upper, 0),
		BBLower:      ta.Last(lower, 0),
		SMA20:        ta.Last(sma20, 0),
		SMA50:        ta.Last(sma50, 0),
	}
}

// generateSignal 四路指标投票：RSI权重0.8、MACD 0.7、布林带0.6、均线0.5，
// 置信度为胜出方向各因子的平均值
func (s *MomentumStrategy) generateSignal(ind momentumIndicators) Signal {
	var buyFactors, sellFactors []float64

	if ind.RSI < rsiOversold {
		buyFactors = append(buyFactors, 0.8)
	} else if ind.RSI > rsiOverbought {
		sellFactors = append(sellFactors, 0.8)
	}

	if ind.MACD > ind.MACDSignal && ind.MACDHist > 0 {
		buyFactors = append(buyFactors, 0.7)
	} else if ind.MACD < ind.MACDSignal && ind.MACDHist < 0 {
		sellFactors = append(sellFactors, 0.7)
	}

	if ind.CurrentPrice <= ind.BBLower {
		buyFactors = append(buyFactors, 0.6)
	} else if ind.CurrentPrice >= ind.BBUpper {
		sellFactors = append(sellFactors, 0.6)
	}

	if ind.CurrentPrice > ind.SMA20 && ind.SMA20 > ind.SMA50 {
		buyFactors = append(buyFactors, 0.5)
	} else if ind.CurrentPrice < ind.SMA20 && ind.SMA20 < ind.SMA50 {
		sellFactors = append(sellFactors, 0.5)
	}

	total := len(buyFactors) + len(sellFactors)
	if total == 0 {
		return Signal{Action: "hold", Confidence: 0, Reason: "No clear signal"}
	}

	switch {
	case len(buyFactors) > len(sellFactors):
		return Signal{
			Action:     models.ActionBuy,
			Confidence: average(buyFactors),
			Reason:     fmt.Sprintf("Buy signals: RSI=%.1f, MACD=%.4f>%.4f", ind.RSI, ind.MACD, ind.MACDSignal),
		}
	case len(sellFactors) > len(buyFactors):
		return Signal{
			Action:     models.ActionSell,
			Confidence: average(sellFactors),
			Reason:     fmt.Sprintf("Sell signals: RSI=%.1f, MACD=%.4f<%.4f", ind.RSI, ind.MACD, ind.MACDSignal),
		}
	default:
		return Signal{Action: "hold", Confidence: 0.3, Reason: "Mixed signals"}
	}
}

func average(factors []float64) float64 {
	if len(factors) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range factors {
		sum += f
	}
	return sum / float64(len(factors))
}

// ExecuteSignal 执行信号：买入仅在无持仓时开仓，卖出仅在有持仓时平仓
func (s *MomentumStrategy) ExecuteSignal(ctx context.Context, signal Signal) (*models.Trade, error) {
	key := positionKey(signal.Exchange, signal.Symbol)

	s.mu.Lock()
	_, held := s.positions[key]
	s.mu.Unlock()

	switch {
	case signal.Action == models.ActionBuy && !held:
		return s.executeBuy(ctx, signal)
	case signal.Action == models.ActionSell && held:
		return s.executeSell(ctx, signal)
	default:
		return nil, nil
	}
}

func (s *MomentumStrategy) executeBuy(ctx context.Context, signal Signal) (*models.Trade, error) {
	ticker, err := s.exchange.GetTicker(ctx, signal.Exchange, signal.Symbol)
	if err != nil {
		return nil, fmt.Errorf("get ticker: %w", err)
	}
	currentPrice := ticker.Last

	balance, err := s.exchange.GetBalance(ctx, signal.Exchange)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	_, quote := exchange.SplitSymbol(signal.Symbol)
	available := balance[quote].Free
	amount := available * s.maxPositionSize / currentPrice
	if amount < minTradeAmount {
		return nil, fmt.Errorf("position too small for %s: %.8f", signal.Symbol, amount)
	}

	order, err := s.exchange.PlaceOrder(ctx, signal.Exchange, signal.Symbol,
		exchange.OrderTypeMarket, exchange.OrderSideBuy, amount, 0)
	if err != nil {
		return nil, fmt.Errorf("place buy order: %w", err)
	}

	entryPrice := order.Price
	if entryPrice == 0 {
		entryPrice = currentPrice
	}

	s.mu.Lock()
	s.positions[positionKey(signal.Exchange, signal.Symbol)] = &Position{
		Symbol:      signal.Symbol,
		Exchange:    signal.Exchange,
		Amount:      amount,
		EntryPrice:  entryPrice,
		EntryTime:   time.Now(),
		TargetPrice: currentPrice * (1 + s.targetProfit),
		StopPrice:   currentPrice * (1 - s.stopLoss),
		OrderID:     order.ID,
	}
	s.mu.Unlock()

	cost := order.Cost
	if cost == 0 {
		cost = amount * currentPrice
	}

	s.logger.Info("momentum buy",
		zap.String("symbol", signal.Symbol),
		zap.Float64("amount", amount),
		zap.Float64("price", entryPrice))

	return &models.Trade{
		Timestamp:        time.Now(),
		Strategy:         models.StrategyMomentum,
		Symbol:           signal.Symbol,
		Exchange:         signal.Exchange,
		Action:           models.ActionBuy,
		Amount:           amount,
		Price:            entryPrice,
		Cost:             cost,
		OrderID:          order.ID,
		SignalConfidence: signal.Confidence,
		Notes:            signal.Reason,
	}, nil
}

func (s *MomentumStrategy) executeSell(ctx context.Context, signal Signal) (*models.Trade, error) {
	key := positionKey(signal.Exchange, signal.Symbol)

	s.mu.Lock()
	position, ok := s.positions[key]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	ticker, err := s.exchange.GetTicker(ctx, signal.Exchange, signal.Symbol)
	if err != nil {
		return nil, fmt.Errorf("get ticker: %w", err)
	}
	currentPrice := ticker.Last

	order, err := s.exchange.PlaceOrder(ctx, signal.Exchange, signal.Symbol,
		exchange.OrderTypeMarket, exchange.OrderSideSell, position.Amount, 0)
	if err != nil {
		return nil, fmt.Errorf("place sell order: %w", err)
	}

	entryCost := position.Amount * position.EntryPrice
	exitRevenue := order.Cost
	if exitRevenue == 0 {
		exitRevenue = position.Amount * currentPrice
	}
	profit := exitRevenue - entryCost

	profitPercentage := 0.0
	if entryCost > 0 {
		profitPercentage = profit / entryCost * 100
	}

	s.mu.Lock()
	delete(s.positions, key)
	s.mu.Unlock()

	exitPrice := order.Price
	if exitPrice == 0 {
		exitPrice = currentPrice
	}

	s.logger.Info("momentum sell",
		zap.String("symbol", signal.Symbol),
		zap.Float64("amount", position.Amount),
		zap.Float64("price", exitPrice),
		zap.Float64("profit", profit),
		zap.Duration("held", time.Since(position.EntryTime)))

	return &models.Trade{
		Timestamp:        time.Now(),
		Strategy:         models.StrategyMomentum,
		Symbol:           signal.Symbol,
		Exchange:         signal.Exchange,
		Action:           models.ActionSell,
		Amount:           position.Amount,
		Price:            exitPrice,
		Cost:             entryCost,
		Profit:           profit,
		ProfitPercentage: profitPercentage,
		OrderID:          order.ID,
		SignalConfidence: signal.Confidence,
		Notes:            signal.Reason,
	}, nil
}

// CheckPositions 巡检持仓：止损、止盈、超时强平，返回待执行的卖出信号
func (s *MomentumStrategy) CheckPositions(ctx context.Context) []Signal {
	s.mu.Lock()
	snapshot := make([]*Position, 0, len(s.positions))
	for _, p := range s.positions {
		snapshot = append(snapshot, p)
	}
	s.mu.Unlock()

	var actions []Signal
	for _, position := range snapshot {
		ticker, err := s.exchange.GetTicker(ctx, position.Exchange, position.Symbol)
		if err != nil {
			s.logger.Error("failed to check position",
				zap.String("symbol", position.Symbol), zap.Error(err))
			continue
		}
		currentPrice := ticker.Last

		switch {
		case currentPrice <= position.StopPrice:
			s.logger.Warn("stop loss triggered",
				zap.String("symbol", position.Symbol),
				zap.Float64("price", currentPrice))
			actions = append(actions, Signal{
				Strategy:   models.StrategyMomentum,
				Action:     models.ActionSell,
				Symbol:     position.Symbol,
				Exchange:   position.Exchange,
				Reason:     ExitReasonStopLoss,
				Confidence: 1.0,
			})
		case currentPrice >= position.TargetPrice:
			s.logger.Info("take profit triggered",
				zap.String("symbol", position.Symbol),
				zap.Float64("price", currentPrice))
			actions = append(actions, Signal{
				Strategy:   models.StrategyMomentum,
				Action:     models.ActionSell,
				Symbol:     position.Symbol,
				Exchange:   position.Exchange,
				Reason:     ExitReasonTakeProfit,
				Confidence: 1.0,
			})
		case time.Since(position.EntryTime) > maxHoldDuration:
			s.logger.Info("time based exit",
				zap.String("symbol", position.Symbol),
				zap.Duration("held", time.Since(position.EntryTime)))
			actions = append(actions, Signal{
				Strategy:   models.StrategyMomentum,
				Action:     models.ActionSell,
				Symbol:     position.Symbol,
				Exchange:   position.Exchange,
				Reason:     ExitReasonTimeExit,
				Confidence: 0.8,
			})
		}
	}

	return actions
}

// Positions 当前持仓快照，供仪表盘只读使用
func (s *MomentumStrategy) Positions() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, *p)
	}
	return out
}
