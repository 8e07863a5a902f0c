package model

// ==================== 订单状态常量 ====================

const (
	OrderStatusInProcess  = "in_process"  // 购物车（未提交）
	OrderStatusConfirmed  = "confirmed"   // 已确认
	OrderStatusCanceled   = "canceled"    // 已取消
	OrderStatusPaid       = "paid"        // 已支付
	OrderStatusAssembly   = "assembly"    // 配货中
	OrderStatusInDelivery = "in_delivery" // 配送中
	OrderStatusInClient   = "in_client"   // 已送达
)

// orderTransitions 合法的状态流转
var orderTransitions = map[string][]string{
	OrderStatusInProcess:  {OrderStatusConfirmed, OrderStatusCanceled},
	OrderStatusConfirmed:  {OrderStatusPaid, OrderStatusCanceled},
	OrderStatusPaid:       {OrderStatusAssembly, OrderStatusCanceled},
	OrderStatusAssembly:   {OrderStatusInDelivery, OrderStatusCanceled},
	OrderStatusInDelivery: {OrderStatusInClient, OrderStatusCanceled},
}

// CanTransition 判断 from -> to 是否允许
func CanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus 终态不再流转
func IsTerminalStatus(status string) bool {
	return len(orderTransitions[status]) == 0
}

// IsValidOrderStatus 状态值是否合法
func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusInProcess, OrderStatusConfirmed, OrderStatusCanceled, OrderStatusPaid,
		OrderStatusAssembly, OrderStatusInDelivery, OrderStatusInClient:
		return true
	}
	return false
}

// ==================== Order 订单 ====================

// Order 订单
// 每个用户最多一个 in_process 订单，即购物车，由部分唯一索引保证
type Order struct {
	BaseModel
	UserID    int64  `gorm:"not null;index;uniqueIndex:idx_orders_open_basket,where:status = 'in_process'" json:"user_id"`
	Status    string `gorm:"size:20;not null;index" json:"status"`
	ContactID *int64 `gorm:"index" json:"contact_id"`

	Items   []OrderItem  `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Contact *ContactCard `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem 订单行
// ShopID 冗余保存，写入时强制等于报价所属店铺
type OrderItem struct {
	BaseModel
	OrderID   int64 `gorm:"not null;uniqueIndex:idx_order_items_order_listing,priority:1" json:"order_id"`
	ListingID int64 `gorm:"not null;index;uniqueIndex:idx_order_items_order_listing,priority:2" json:"listing_id"`
	ShopID    int64 `gorm:"not null;index" json:"shop_id"`
	Quantity  int   `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`

	Listing *ProductListing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
