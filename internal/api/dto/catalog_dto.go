package dto

import "time"

// ==================== 公开目录 ====================

type CategoryInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ShopInfo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AcceptingOrders bool   `json:"accepting_orders"`
}

// ListProductsRequest 商品查询，参数均可选
type ListProductsRequest struct {
	ShopID     int64 `form:"shop_id" binding:"omitempty,gt=0"`
	CategoryID int64 `form:"category_id" binding:"omitempty,gt=0"`
}

// ListingInfo 店铺报价
type ListingInfo struct {
	ID         int64             `json:"id"`
	ProductID  int64             `json:"product_id"`
	Product    string            `json:"product"`
	CategoryID int64             `json:"category_id"`
	Category   string            `json:"category"`
	ShopID     int64             `json:"shop_id"`
	Shop       string            `json:"shop"`
	BPNumber   int64             `json:"bp_number"`
	Model      string            `json:"model"`
	Quantity   int               `json:"quantity"`
	Price      int64             `json:"price"`
	PriceRRC   int64             `json:"price_rrc"`
	Parameters map[string]string `json:"parameters"`
}

// ==================== 经销商店铺 ====================

// UpsertShopRequest 创建或修改自己的店铺
type UpsertShopRequest struct {
	Name            string `json:"name" binding:"required,max=50"`
	URL             string `json:"url" binding:"omitempty,url,max=500"`
	Filename        string `json:"filename" binding:"omitempty,max=255"`
	AcceptingOrders *bool  `json:"accepting_orders"`
}

type PartnerShopInfo struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	Filename        string     `json:"filename"`
	AcceptingOrders bool       `json:"accepting_orders"`
	LastImportAt    *time.Time `json:"last_import_at"`
	Listings        int64      `json:"listings"`
}
