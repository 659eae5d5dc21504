package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyStat 每日交易统计，每个自然日一行，每笔交易后覆盖更新
type DailyStat struct {
	Date          datatypes.Date `gorm:"primaryKey" json:"date"`
	TotalTrades   int            `gorm:"default:0" json:"total_trades"`
	WinningTrades int            `gorm:"default:0" json:"winning_trades"`
	LosingTrades  int            `gorm:"default:0" json:"losing_trades"`
	DailyProfit   float64        `gorm:"type:decimal(20,8);default:0" json:"daily_profit"`
	DailyVolume   float64        `gorm:"type:decimal(20,8);default:0" json:"daily_volume"`
	LargestWin    float64        `gorm:"type:decimal(20,8);default:0" json:"largest_win"`
	LargestLoss   float64        `gorm:"type:decimal(20,8);default:0" json:"largest_loss"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (DailyStat) TableName() string {
	return "daily_stats"
}

// WinRate 当日胜率（百分比），无已平仓交易时为0
func (d *DailyStat) WinRate() float64 {
	completed := d.WinningTrades + d.LosingTrades
	if completed == 0 {
		return 0
	}
	return float64(d.WinningTrades) / float64(completed) * 100
}
