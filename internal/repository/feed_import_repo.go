package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"marketplace_v1_202610/internal/model"
)

// FeedImportRepository 导入记录仓储接口
type FeedImportRepository interface {
	Create(ctx context.Context, rec *model.FeedImport) error
	ListByShop(ctx context.Context, shopID int64, limit int) ([]model.FeedImport, error)
	// DeleteBefore 删除早于 before 的记录，返回删除条数
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type feedImportRepo struct {
	db *gorm.DB
}

// NewFeedImportRepository 创建导入记录仓储
func NewFeedImportRepository(db *gorm.DB) FeedImportRepository {
	return &feedImportRepo{db: db}
}

func (r *feedImportRepo) Create(ctx context.Context, rec *model.FeedImport) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *feedImportRepo) ListByShop(ctx context.Context, shopID int64, limit int) ([]model.FeedImport, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []model.FeedImport
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *feedImportRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&model.FeedImport{})
	return res.RowsAffected, res.Error
}
