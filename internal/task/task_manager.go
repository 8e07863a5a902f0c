package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"marketplace_v1_202610/internal/repository"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	feedTask    *FeedRefreshTask
	cleanupTask *ImportCleanupTask
	log         *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	ShopRepo   repository.ShopRepository
	ImportRepo repository.FeedImportRepository
	Refresher  ShopRefresher
	Logger     *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 价目表刷新
	FeedRefreshEnabled     bool
	FeedRefreshSpec        string
	FeedRefreshConcurrency int

	// 导入记录清理
	ImportCleanupEnabled bool
	ImportRetention      time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		FeedRefreshEnabled:     true,
		FeedRefreshSpec:        DefaultFeedRefreshSpec,
		FeedRefreshConcurrency: 2,
		ImportCleanupEnabled:   true,
		ImportRetention:        90 * 24 * time.Hour,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	tm := &TaskManager{log: log.Named("task")}

	if cfg.FeedRefreshEnabled && deps.Refresher != nil {
		tm.feedTask = NewFeedRefreshTask(deps.ShopRepo, deps.Refresher, log)
		tm.feedTask.SetSchedule(cfg.FeedRefreshSpec)
		tm.feedTask.SetConcurrency(cfg.FeedRefreshConcurrency, 200*time.Millisecond)
	}

	if cfg.ImportCleanupEnabled && deps.ImportRepo != nil {
		tm.cleanupTask = NewImportCleanupTask(deps.ImportRepo, log, WithRetention(cfg.ImportRetention))
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.feedTask != nil {
		if err := tm.feedTask.Start(); err != nil {
			return err
		}
	}
	if tm.cleanupTask != nil {
		tm.cleanupTask.Start()
	}
	tm.log.Info("tasks started", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.feedTask != nil {
		tm.feedTask.Stop()
	}
	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	tm.log.Info("tasks stopped")
}

// ==================== 手动触发接口 ====================

// TriggerFeedRefresh 同步执行一轮价目表刷新
func (tm *TaskManager) TriggerFeedRefresh(ctx context.Context) (RefreshResult, error) {
	if tm.feedTask == nil {
		return RefreshResult{}, ErrTaskDisabled
	}
	return tm.feedTask.RefreshAll(ctx), nil
}

// TriggerImportCleanup 立即清理一次过期导入记录
func (tm *TaskManager) TriggerImportCleanup() (int64, error) {
	if tm.cleanupTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.cleanupTask.RunOnce(), nil
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"feed_refresh":   tm.feedTask != nil,
		"import_cleanup": tm.cleanupTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
