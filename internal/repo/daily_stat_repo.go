package repo

import (
	"context"

	"github.com/dushixiang/arbiter/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewDailyStatRepo(db *gorm.DB) *DailyStatRepo {
	return &DailyStatRepo{
		Repository: orz.NewRepository[models.DailyStat, datatypes.Date](db),
	}
}

type DailyStatRepo struct {
	orz.Repository[models.DailyStat, datatypes.Date]
}

// Upsert 按日期覆盖写入当日统计
func (r DailyStatRepo) Upsert(ctx context.Context, stat *models.DailyStat) error {
	return r.GetDB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_trades", "winning_trades", "losing_trades",
				"daily_profit", "daily_volume", "largest_win", "largest_loss",
				"updated_at",
			}),
		}).
		Create(stat).Error
}

// FindByDate 查找指定日期的统计记录
func (r DailyStatRepo) FindByDate(ctx context.Context, date datatypes.Date) (m models.DailyStat, err error) {
	err = r.GetDB(ctx).Table(r.GetTableName()).
		Where("date = ?", date).
		First(&m).Error
	return m, err
}

// FindRecent 获取最近N天的统计记录，按日期倒序
func (r DailyStatRepo) FindRecent(ctx context.Context, days int) ([]models.DailyStat, error) {
	var stats []models.DailyStat
	err := r.GetDB(ctx).Table(r.GetTableName()).
		Order("date DESC").
		Limit(days).
		Find(&stats).Error
	return stats, err
}
