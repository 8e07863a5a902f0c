package task

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketplace_v1_202610/internal/repository"
)

// ==================== ImportCleanupTask 导入记录清理 ====================

// ImportCleanupTask 按保留期删除过期的价目表导入记录
type ImportCleanupTask struct {
	importRepo repository.FeedImportRepository
	log        *zap.Logger

	retention time.Duration
	interval  time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// ImportCleanupOption 任务选项
type ImportCleanupOption func(*ImportCleanupTask)

// WithRetention 设置保留期
func WithRetention(d time.Duration) ImportCleanupOption {
	return func(t *ImportCleanupTask) {
		if d > 0 {
			t.retention = d
		}
	}
}

// WithInterval 设置执行间隔
func WithInterval(d time.Duration) ImportCleanupOption {
	return func(t *ImportCleanupTask) {
		if d > 0 {
			t.interval = d
		}
	}
}

// NewImportCleanupTask 默认保留 90 天，每天执行一次
func NewImportCleanupTask(importRepo repository.FeedImportRepository, log *zap.Logger, opts ...ImportCleanupOption) *ImportCleanupTask {
	t := &ImportCleanupTask{
		importRepo: importRepo,
		log:        log.Named("import_cleanup"),
		retention:  90 * 24 * time.Hour,
		interval:   24 * time.Hour,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start 启动任务，启动时立即执行一次
func (t *ImportCleanupTask) Start() {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run()

	t.log.Info("started", zap.Duration("retention", t.retention), zap.Duration("interval", t.interval))
}

// Stop 停止任务
func (t *ImportCleanupTask) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	close(t.stopCh)
	t.wg.Wait()
	t.log.Info("stopped")
}

func (t *ImportCleanupTask) run() {
	defer t.wg.Done()

	t.RunOnce()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.RunOnce()
		case <-t.stopCh:
			return
		}
	}
}

// RunOnce 执行一次清理，返回删除条数
func (t *ImportCleanupTask) RunOnce() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	before := time.Now().Add(-t.retention)
	deleted, err := t.importRepo.DeleteBefore(ctx, before)
	if err != nil {
		t.log.Error("cleanup failed", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		t.log.Info("expired import records deleted",
			zap.Int64("deleted", deleted),
			zap.Time("before", before))
	}
	return deleted
}
