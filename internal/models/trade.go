package models

import (
	"time"
)

// 策略标签
const (
	StrategyArbitrage = "arbitrage"
	StrategyMomentum  = "momentum"
	StrategyManual    = "manual"
)

// 交易方向
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Trade 交易记录，写入后不再修改（审计流水）
type Trade struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	Timestamp        time.Time `gorm:"not null;index" json:"timestamp"`                    // 成交时间
	Strategy         string    `gorm:"type:varchar(20);not null;index" json:"strategy"`    // arbitrage/momentum/manual
	Symbol           string    `gorm:"type:varchar(20);not null;index" json:"symbol"`      // 交易对，如 BTC/USDT
	Exchange         string    `gorm:"type:varchar(20);not null" json:"exchange"`          // 交易所标识
	Action           string    `gorm:"type:varchar(10);not null" json:"action"`            // buy/sell
	Amount           float64   `gorm:"type:decimal(20,8);not null" json:"amount"`          // 成交数量
	Price            float64   `gorm:"type:decimal(20,8);not null" json:"price"`           // 成交价格
	Cost             float64   `gorm:"type:decimal(20,8)" json:"cost"`                     // 成交金额（amount×price，按方向有符号）
	Profit           float64   `gorm:"type:decimal(20,8)" json:"profit"`                   // 平仓盈亏（开仓腿为0）
	ProfitPercentage float64   `gorm:"type:decimal(10,4)" json:"profit_percentage"`        // 盈亏百分比
	OrderID          string    `gorm:"type:varchar(50);index" json:"order_id"`             // 交易所订单ID，可能为空
	SignalConfidence float64   `gorm:"type:decimal(5,4)" json:"signal_confidence"`         // 信号置信度 0..1
	Notes            string    `gorm:"type:text" json:"notes"`                             // 交易原因
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// Completed 是否为已平仓交易（开仓腿盈亏为0，不计入胜负）
func (t *Trade) Completed() bool {
	return t.Profit != 0
}
