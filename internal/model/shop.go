package model

import "time"

// ==================== Shop 店铺 ====================

// Shop 经销商店铺
// 一个经销商最多拥有一个店铺，店铺也可以暂不归属任何用户
type Shop struct {
	BaseModel
	AuditMixin
	Name            string     `gorm:"size:50;not null;index" json:"name"`
	URL             string     `gorm:"size:500" json:"url"`      // 价目表地址，定时刷新使用
	Filename        string     `gorm:"size:255" json:"filename"` // 数据目录中的价目表文件
	UserID          *int64     `gorm:"uniqueIndex" json:"user_id"`
	AcceptingOrders bool       `gorm:"not null" json:"accepting_orders"`
	LastImportAt    *time.Time `json:"last_import_at"`
}

func (Shop) TableName() string {
	return "shops"
}

// ==================== Category 分类 ====================

// Category 商品分类，ID 由价目表给出
type Category struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"size:40;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryShop 分类与店铺的多对多关系
type CategoryShop struct {
	CategoryID int64 `gorm:"primaryKey;autoIncrement:false"`
	ShopID     int64 `gorm:"primaryKey;autoIncrement:false;index"`
}

func (CategoryShop) TableName() string {
	return "category_shops"
}
