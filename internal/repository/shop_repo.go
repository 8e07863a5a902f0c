package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace_v1_202610/internal/model"
)

// ==================== 接口定义 ====================

// ShopRepository 店铺仓储接口
type ShopRepository interface {
	Create(ctx context.Context, shop *model.Shop) error
	GetByID(ctx context.Context, id int64) (*model.Shop, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Shop, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// LockByNameAndUser 在事务内按 (名称, 所属用户) 锁定店铺行
	// 同一店铺的并发导入在此串行化
	LockByNameAndUser(ctx context.Context, name string, userID int64) (*model.Shop, error)

	// 列表查询
	ListAccepting(ctx context.Context) ([]model.Shop, error)
	ListWithFeedURL(ctx context.Context) ([]model.Shop, error)

	WithTx(tx *gorm.DB) ShopRepository
}

// ==================== 仓储实现 ====================

// shopRepo 店铺仓储实现
type shopRepo struct {
	db *gorm.DB
}

// NewShopRepository 创建店铺仓储
func NewShopRepository(db *gorm.DB) ShopRepository {
	return &shopRepo{db: db}
}

func (r *shopRepo) Create(ctx context.Context, shop *model.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *shopRepo) GetByID(ctx context.Context, id int64) (*model.Shop, error) {
	var shop model.Shop
	if err := r.db.WithContext(ctx).First(&shop, id).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) GetByUserID(ctx context.Context, userID int64) (*model.Shop, error) {
	var shop model.Shop
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Shop{}).Where("id = ?", id).Updates(fields).Error
}

func (r *shopRepo) LockByNameAndUser(ctx context.Context, name string, userID int64) (*model.Shop, error) {
	var shop model.Shop
	// SQLite 不支持 FOR UPDATE，方言会忽略该子句
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ? AND user_id = ?", name, userID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepo) ListAccepting(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).
		Where("accepting_orders = ?", true).
		Order("name ASC, id ASC").
		Find(&shops).Error
	return shops, err
}

func (r *shopRepo) ListWithFeedURL(ctx context.Context) ([]model.Shop, error) {
	var shops []model.Shop
	err := r.db.WithContext(ctx).
		Where("url <> '' AND user_id IS NOT NULL").
		Order("id ASC").
		Find(&shops).Error
	return shops, err
}

func (r *shopRepo) WithTx(tx *gorm.DB) ShopRepository {
	return &shopRepo{db: tx}
}
