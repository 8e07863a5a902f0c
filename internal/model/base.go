package model

import (
	"time"
)

type BaseModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditMixin 审计字段，由 middleware.RegisterAuditCallbacks 自动填充
type AuditMixin struct {
	CreatedBy int64 `gorm:"index;comment:创建人ID" json:"created_by"`
	UpdatedBy int64 `gorm:"comment:更新人ID" json:"updated_by"`
}

// AllModels 需要自动迁移的全部模型，顺序即建表顺序
func AllModels() []interface{} {
	return []interface{}{
		// 账户
		&User{}, &ContactCard{},
		// 店铺与目录
		&Shop{}, &Category{}, &CategoryShop{},
		&Product{}, &ProductListing{}, &Parameter{}, &ListingParameter{},
		// 订单
		&Order{}, &OrderItem{},
		// 导入记录
		&FeedImport{},
	}
}
