package dto

import "time"

// ==================== 价目表导入 ====================

// PartnerUpdateRequest 通过 URL 导入
type PartnerUpdateRequest struct {
	URL string `json:"url" binding:"required,max=500"`
}

// PartnerFileUpdateRequest 通过数据目录中的文件导入
type PartnerFileUpdateRequest struct {
	Filename string `json:"filename" binding:"required,max=255"`
}

// ImportResult 导入结果
type ImportResult struct {
	BatchID    string `json:"batch_id"`
	ShopID     int64  `json:"shop_id"`
	Shop       string `json:"shop"`
	Categories int    `json:"categories"`
	Listings   int    `json:"listings"`
	Parameters int    `json:"parameters"`
	Removed    int64  `json:"removed"` // 被替换掉的旧报价数
	DurationMs int64  `json:"duration_ms"`
}

// FeedImportInfo 导入历史
type FeedImportInfo struct {
	BatchID      string    `json:"batch_id"`
	Source       string    `json:"source"`
	Location     string    `json:"location"`
	Status       string    `json:"status"`
	Categories   int       `json:"categories"`
	Listings     int       `json:"listings"`
	Parameters   int       `json:"parameters"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListImportsRequest 导入历史查询
type ListImportsRequest struct {
	Limit int `form:"limit,default=50" binding:"omitempty,min=1,max=200"`
}

// ==================== 订单履约 ====================

// AdvanceStatusRequest 经销商推进订单状态
type AdvanceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=assembly in_delivery in_client canceled"`
}
