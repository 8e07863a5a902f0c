package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== SyncRateLimiter 冷却限流器 ====================

// SyncRateLimiter 按 key 记录上次执行时间的冷却限流器
// 防止经销商频繁触发价目表导入
type SyncRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewSyncRateLimiter 创建独立的限流器，测试中使用
func NewSyncRateLimiter() *SyncRateLimiter {
	return &SyncRateLimiter{}
}

// 全局限流器实例
var globalLimiter = &SyncRateLimiter{}

// GetLimiter 获取全局限流器
func GetLimiter() *SyncRateLimiter {
	return globalLimiter
}

// ==================== 限流检查 ====================

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时同时记录执行时间
// key: 限流键，如 "user:12:feed_import"
func (r *SyncRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)

	if elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key 的限流
func (r *SyncRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成工具 ====================

// FeedImportKey 同一经销商的导入共用一个冷却窗口
func FeedImportKey(userID int64) string {
	return fmt.Sprintf("user:%d:feed_import", userID)
}

// FormatRetryMessage 格式化重试提示信息
func FormatRetryMessage(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	if seconds < 60 {
		return fmt.Sprintf("导入冷却中，请 %d 秒后重试", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("导入冷却中，请 %d 分钟后重试", minutes)
	}

	return fmt.Sprintf("导入冷却中，请 %d 分 %d 秒后重试", minutes, remainingSeconds)
}
