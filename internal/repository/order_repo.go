package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketplace_v1_202610/internal/model"
)

// ==================== 接口定义 ====================

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// 购物车
	// OpenBasket 原子地获取或创建用户唯一的 in_process 订单
	OpenBasket(ctx context.Context, userID int64) (*model.Order, error)
	GetBasket(ctx context.Context, userID int64) (*model.Order, error)
	// LockByID 事务内锁定订单行，购物车修改与提交在此串行
	LockByID(ctx context.Context, id int64) (*model.Order, error)

	// 查询
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetForUser(ctx context.Context, id, userID int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64, excludeInProcess bool) ([]model.Order, error)
	HasShopItems(ctx context.Context, orderID, shopID int64) (bool, error)

	// 订单行
	UpsertItem(ctx context.Context, item *model.OrderItem) (*model.OrderItem, error)
	DeleteItem(ctx context.Context, orderID, itemID int64) (int64, error)
	DeleteItemByListing(ctx context.Context, orderID, listingID int64) (int64, error)
	CountItems(ctx context.Context, orderID int64) (int64, error)

	// 金额
	ComputeTotal(ctx context.Context, orderID int64) (int64, error)
	TotalsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64]int64, error)

	// 状态
	// TransitionStatus 仅当当前状态等于 from 时更新，返回受影响行数
	TransitionStatus(ctx context.Context, id int64, from, to string, fields map[string]interface{}) (int64, error)

	WithTx(tx *gorm.DB) OrderRepository
	Transaction(ctx context.Context, fn func(txRepo OrderRepository) error) error
}

// ==================== 仓储实现 ====================

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) OpenBasket(ctx context.Context, userID int64) (*model.Order, error) {
	basket := model.Order{UserID: userID, Status: model.OrderStatusInProcess}
	// 依赖部分唯一索引 idx_orders_open_basket，冲突即说明购物车已存在
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&basket).Error
	if err != nil {
		return nil, err
	}
	return r.GetBasket(ctx, userID)
}

func (r *orderRepo) GetBasket(ctx context.Context, userID int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.OrderStatusInProcess).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) LockByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// withItems 预加载订单行及其报价，报价可能已被价目表替换（软删除）
func withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("order_items.id ASC")
		}).
		Preload("Items.Listing", func(tx *gorm.DB) *gorm.DB {
			return tx.Unscoped()
		}).
		Preload("Items.Listing.Product").
		Preload("Contact")
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := withItems(r.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) GetForUser(ctx context.Context, id, userID int64) (*model.Order, error) {
	var order model.Order
	err := withItems(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64, excludeInProcess bool) ([]model.Order, error) {
	var orders []model.Order
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if excludeInProcess {
		query = query.Where("status <> ?", model.OrderStatusInProcess)
	}
	err := query.Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) HasShopItems(ctx context.Context, orderID, shopID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("order_id = ? AND shop_id = ?", orderID, shopID).
		Count(&count).Error
	return count > 0, err
}

// UpsertItem 按 (order_id, listing_id) 原子插入或更新数量
func (r *orderRepo) UpsertItem(ctx context.Context, item *model.OrderItem) (*model.OrderItem, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity", "shop_id", "updated_at"}),
	}).Omit(clause.Associations).Create(item).Error
	if err != nil {
		return nil, err
	}

	var saved model.OrderItem
	err = r.db.WithContext(ctx).
		Where("order_id = ? AND listing_id = ?", item.OrderID, item.ListingID).
		First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *orderRepo) DeleteItem(ctx context.Context, orderID, itemID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND order_id = ?", itemID, orderID).
		Delete(&model.OrderItem{})
	return res.RowsAffected, res.Error
}

func (r *orderRepo) DeleteItemByListing(ctx context.Context, orderID, listingID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("order_id = ? AND listing_id = ?", orderID, listingID).
		Delete(&model.OrderItem{})
	return res.RowsAffected, res.Error
}

func (r *orderRepo) CountItems(ctx context.Context, orderID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OrderItem{}).Where("order_id = ?", orderID).Count(&count).Error
	return count, err
}

// ComputeTotal 订单金额 = Σ 数量 × 报价单价，空订单为 0
func (r *orderRepo) ComputeTotal(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("COALESCE(SUM(order_items.quantity * product_listings.price), 0)").
		Joins("JOIN product_listings ON product_listings.id = order_items.listing_id").
		Where("order_items.order_id = ?", orderID).
		Scan(&total).Error
	return total, err
}

// TotalsByOrderIDs 批量计算订单金额，没有订单行的订单不在结果中
func (r *orderRepo) TotalsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64]int64, error) {
	totals := make(map[int64]int64, len(orderIDs))
	if len(orderIDs) == 0 {
		return totals, nil
	}

	var rows []struct {
		OrderID int64
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.order_id AS order_id, COALESCE(SUM(order_items.quantity * product_listings.price), 0) AS total").
		Joins("JOIN product_listings ON product_listings.id = order_items.listing_id").
		Where("order_items.order_id IN ?", orderIDs).
		Group("order_items.order_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		totals[row.OrderID] = row.Total
	}
	return totals, nil
}

func (r *orderRepo) TransitionStatus(ctx context.Context, id int64, from, to string, fields map[string]interface{}) (int64, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range fields {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *orderRepo) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepo{db: tx}
}

func (r *orderRepo) Transaction(ctx context.Context, fn func(txRepo OrderRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
