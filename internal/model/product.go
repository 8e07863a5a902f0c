package model

import (
	"gorm.io/gorm"
)

// ==================== Product 商品 ====================

// Product 商品，(分类, 名称) 唯一，跨店铺共享
type Product struct {
	BaseModel
	CategoryID int64  `gorm:"not null;uniqueIndex:idx_products_category_name,priority:1" json:"category_id"`
	Name       string `gorm:"size:255;not null;uniqueIndex:idx_products_category_name,priority:2" json:"name"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// ==================== ProductListing 店铺报价 ====================

// ProductListing 某店铺对某商品的一条报价
// 价目表全量替换时做软删除，历史订单行仍可关联到原报价
type ProductListing struct {
	BaseModel
	ProductID int64  `gorm:"not null;index;uniqueIndex:idx_listings_product_shop_bp,priority:1,where:deleted_at IS NULL" json:"product_id"`
	ShopID    int64  `gorm:"not null;index;uniqueIndex:idx_listings_product_shop_bp,priority:2" json:"shop_id"`
	BPNumber  int64  `gorm:"not null;uniqueIndex:idx_listings_product_shop_bp,priority:3" json:"bp_number"` // 价目表中的商品编号
	Name      string `gorm:"size:255;not null" json:"model"`                                                // 型号
	Quantity  int    `gorm:"not null;check:chk_listings_quantity,quantity >= 0" json:"quantity"`
	Price     int64  `gorm:"not null;check:chk_listings_price,price > 0" json:"price"`
	PriceRRC  int64  `gorm:"not null;check:chk_listings_price_rrc,price_rrc > 0" json:"price_rrc"` // 建议零售价

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Product    *Product           `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Shop       *Shop              `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
	Parameters []ListingParameter `gorm:"foreignKey:ListingID" json:"parameters,omitempty"`
}

func (ProductListing) TableName() string {
	return "product_listings"
}

// ==================== Parameter 参数 ====================

type Parameter struct {
	BaseModel
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
}

func (Parameter) TableName() string {
	return "parameters"
}

// ListingParameter 报价的参数值
type ListingParameter struct {
	BaseModel
	ListingID   int64  `gorm:"not null;uniqueIndex:idx_listing_params,priority:1" json:"listing_id"`
	ParameterID int64  `gorm:"not null;uniqueIndex:idx_listing_params,priority:2;index" json:"parameter_id"`
	Value       string `gorm:"size:255;not null" json:"value"`

	Parameter *Parameter `gorm:"foreignKey:ParameterID" json:"parameter,omitempty"`
}

func (ListingParameter) TableName() string {
	return "listing_parameters"
}
