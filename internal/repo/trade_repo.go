package repo

import (
	"context"
	"time"

	"github.com/dushixiang/arbiter/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.Trade, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.Trade, string]
}

// FindSince 获取指定时间之后的交易记录，按时间倒序
func (r TradeRepo) FindSince(ctx context.Context, since time.Time, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx).Table(r.GetTableName()).
		Where("timestamp >= ?", since).
		Order("timestamp DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&trades).Error
	return trades, err
}

// FindRecentTrades 获取最近的交易记录
func (r TradeRepo) FindRecentTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	err := r.GetDB(ctx).Table(r.GetTableName()).
		Order("timestamp DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}

// CountByStrategy 按策略统计交易笔数
func (r TradeRepo) CountByStrategy(ctx context.Context, strategy string) (int64, error) {
	var count int64
	err := r.GetDB(ctx).Table(r.GetTableName()).
		Where("strategy = ?", strategy).
		Count(&count).Error
	return count, err
}
