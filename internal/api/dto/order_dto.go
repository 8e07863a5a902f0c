package dto

import "time"

// ==================== 购物车 ====================

// SetItemRequest 设置购物车中某报价的数量，0 表示移除
type SetItemRequest struct {
	ListingID int64 `json:"listing_id" binding:"required,gt=0"`
	ShopID    int64 `json:"shop_id" binding:"required,gt=0"`
	Quantity  *int  `json:"quantity" binding:"required,gte=0,lte=100000"`
}

// ConfirmRequest 提交购物车
type ConfirmRequest struct {
	ContactID *int64 `json:"contact_id" binding:"omitempty,gt=0"`
}

// ==================== 订单 ====================

// OrderItemInfo 订单行
type OrderItemInfo struct {
	ID        int64  `json:"id"`
	ListingID int64  `json:"listing_id"`
	ShopID    int64  `json:"shop_id"`
	Product   string `json:"product"`
	Model     string `json:"model"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Sum       int64  `json:"sum"`
	Available bool   `json:"available"` // 报价已被价目表替换时为 false
}

// OrderInfo 订单详情
type OrderInfo struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	ContactID *int64          `json:"contact_id,omitempty"`
	Contact   *ContactInfo    `json:"contact,omitempty"`
	Items     []OrderItemInfo `json:"items"`
	Total     int64           `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrderSummary 订单列表项
type OrderSummary struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// ==================== 支付回调 ====================

// PaymentCallbackRequest 支付网关回调，请求体需带 X-Signature
type PaymentCallbackRequest struct {
	OrderID int64 `json:"order_id" binding:"required,gt=0"`
}
