package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace_v1_202610/internal/model"
)

// ==================== 接口定义 ====================

// CatalogRepository 目录仓储接口（分类、商品、报价、参数）
type CatalogRepository interface {
	// 分类
	// UpsertCategory 按 ID 插入或改名，返回改名前的名称（新建时为空）
	UpsertCategory(ctx context.Context, id int64, name string) (previous string, err error)
	LinkCategoryShop(ctx context.Context, categoryID, shopID int64) error
	CategoryExists(ctx context.Context, id int64) (bool, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	// 商品
	GetOrCreateProduct(ctx context.Context, categoryID int64, name string) (*model.Product, error)

	// 报价
	CreateListing(ctx context.Context, listing *model.ProductListing) error
	SoftDeleteListingsByShop(ctx context.Context, shopID int64) (int64, error)
	GetListing(ctx context.Context, id int64) (*model.ProductListing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]model.ProductListing, error)
	CountListingsByShop(ctx context.Context, shopID int64) (int64, error)

	// 参数
	GetOrCreateParameter(ctx context.Context, name string) (*model.Parameter, error)
	SetListingParameter(ctx context.Context, lp *model.ListingParameter) error

	WithTx(tx *gorm.DB) CatalogRepository
}

// ==================== 过滤条件 ====================

// ListingFilter 报价过滤条件
type ListingFilter struct {
	ShopID     int64 // 0 表示不筛选
	CategoryID int64 // 0 表示不筛选
	// OnlyAccepting 只返回接单中的店铺
	OnlyAccepting bool
}

// ==================== 仓储实现 ====================

type catalogRepo struct {
	db *gorm.DB
}

// NewCatalogRepository 创建目录仓储
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) UpsertCategory(ctx context.Context, id int64, name string) (string, error) {
	var existing model.Category
	previous := ""
	err := r.db.WithContext(ctx).Select("id", "name").First(&existing, id).Error
	switch {
	case err == nil:
		previous = existing.Name
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}

	category := model.Category{ID: id, Name: name}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&category).Error
	return previous, err
}

func (r *catalogRepo) LinkCategoryShop(ctx context.Context, categoryID, shopID int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CategoryShop{CategoryID: categoryID, ShopID: shopID}).Error
}

func (r *catalogRepo) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *catalogRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&categories).Error
	return categories, err
}

// GetOrCreateProduct 先以 ON CONFLICT DO NOTHING 插入，再读回
// 并发导入同名商品时不会出现重复行
func (r *catalogRepo) GetOrCreateProduct(ctx context.Context, categoryID int64, name string) (*model.Product, error) {
	product := model.Product{CategoryID: categoryID, Name: name}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_id"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&product).Error
	if err != nil {
		return nil, err
	}

	var found model.Product
	if err := r.db.WithContext(ctx).
		Where("category_id = ? AND name = ?", categoryID, name).
		First(&found).Error; err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *catalogRepo) CreateListing(ctx context.Context, listing *model.ProductListing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
}

func (r *catalogRepo) SoftDeleteListingsByShop(ctx context.Context, shopID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Delete(&model.ProductListing{})
	return res.RowsAffected, res.Error
}

func (r *catalogRepo) GetListing(ctx context.Context, id int64) (*model.ProductListing, error) {
	var listing model.ProductListing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *catalogRepo) ListListings(ctx context.Context, filter ListingFilter) ([]model.ProductListing, error) {
	var listings []model.ProductListing

	query := r.db.WithContext(ctx).
		Model(&model.ProductListing{}).
		Joins("JOIN products ON products.id = product_listings.product_id").
		Joins("JOIN shops ON shops.id = product_listings.shop_id")

	if filter.OnlyAccepting {
		query = query.Where("shops.accepting_orders = ?", true)
	}
	if filter.ShopID > 0 {
		query = query.Where("product_listings.shop_id = ?", filter.ShopID)
	}
	if filter.CategoryID > 0 {
		query = query.Where("products.category_id = ?", filter.CategoryID)
	}

	err := query.
		Preload("Product.Category").
		Preload("Shop").
		Preload("Parameters.Parameter").
		Order("product_listings.id ASC").
		Find(&listings).Error
	return listings, err
}

func (r *catalogRepo) CountListingsByShop(ctx context.Context, shopID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProductListing{}).Where("shop_id = ?", shopID).Count(&count).Error
	return count, err
}

func (r *catalogRepo) GetOrCreateParameter(ctx context.Context, name string) (*model.Parameter, error) {
	param := model.Parameter{Name: name}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&param).Error
	if err != nil {
		return nil, err
	}

	var found model.Parameter
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&found).Error; err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *catalogRepo) SetListingParameter(ctx context.Context, lp *model.ListingParameter) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "listing_id"}, {Name: "parameter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Omit(clause.Associations).Create(lp).Error
}

func (r *catalogRepo) WithTx(tx *gorm.DB) CatalogRepository {
	return &catalogRepo{db: tx}
}
