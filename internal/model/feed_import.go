package model

import (
	"gorm.io/datatypes"
)

// 导入来源
const (
	FeedSourceURL  = "url"
	FeedSourceFile = "file"
	FeedSourceTask = "task" // 定时刷新
	FeedSourceCLI  = "cli"  // 命令行导入本地文件
)

// 导入结果
const (
	FeedImportSuccess = "success"
	FeedImportFailed  = "failed"
)

// FeedImport 价目表导入记录
// 导入失败也会写入，记录在事务之外
type FeedImport struct {
	BaseModel
	AuditMixin
	BatchID    string `gorm:"size:36;uniqueIndex;not null" json:"batch_id"`
	ShopID     *int64 `gorm:"index" json:"shop_id"`
	UserID     int64  `gorm:"index;not null" json:"user_id"`
	ShopName   string `gorm:"size:50" json:"shop_name"`
	Source     string `gorm:"size:10;not null" json:"source"`
	Location   string `gorm:"size:500" json:"location"` // URL 或文件名
	ArchiveKey string `gorm:"size:500" json:"archive_key"`
	Status     string `gorm:"size:10;not null;index" json:"status"`

	Categories int `json:"categories"`
	Listings   int `json:"listings"`
	Parameters int `json:"parameters"`

	ErrorCode    string `gorm:"size:32" json:"error_code"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`
	DurationMs   int64  `json:"duration_ms"`

	Stats datatypes.JSONMap `gorm:"type:jsonb" json:"stats"`
}

func (FeedImport) TableName() string {
	return "feed_imports"
}
