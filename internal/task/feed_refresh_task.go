package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/repository"
)

// ==================== FeedRefreshTask 价目表定时刷新 ====================

// DefaultFeedRefreshSpec 每天 03:00
const DefaultFeedRefreshSpec = "0 0 3 * * *"

// ShopRefresher 按店铺保存的 URL 重新导入
type ShopRefresher interface {
	RefreshShop(ctx context.Context, shop *model.Shop) (*dto.ImportResult, error)
}

// RefreshResult 一轮刷新的统计
type RefreshResult struct {
	Shops    int
	Success  int
	Failed   int
	Listings int
}

// FeedRefreshTask 定时重新导入配置了价目表地址的店铺
type FeedRefreshTask struct {
	shopRepo  repository.ShopRepository
	refresher ShopRefresher
	cron      *cron.Cron
	log       *zap.Logger

	spec string
	// 并发控制
	concurrencyLimit int
	sleepTime        time.Duration
	timeout          time.Duration
}

// NewFeedRefreshTask 创建价目表刷新任务
func NewFeedRefreshTask(shopRepo repository.ShopRepository, refresher ShopRefresher, log *zap.Logger) *FeedRefreshTask {
	return &FeedRefreshTask{
		shopRepo:         shopRepo,
		refresher:        refresher,
		cron:             cron.New(cron.WithSeconds()),
		log:              log.Named("feed_refresh"),
		spec:             DefaultFeedRefreshSpec,
		concurrencyLimit: 2,
		sleepTime:        200 * time.Millisecond,
		timeout:          30 * time.Minute,
	}
}

// SetSchedule 设置 cron 表达式（含秒）
func (t *FeedRefreshTask) SetSchedule(spec string) {
	if spec != "" {
		t.spec = spec
	}
}

// SetConcurrency 设置并发参数
func (t *FeedRefreshTask) SetConcurrency(limit int, sleep time.Duration) {
	if limit < 1 {
		limit = 1
	}
	t.concurrencyLimit = limit
	t.sleepTime = sleep
}

// Start 启动定时任务
func (t *FeedRefreshTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		t.RefreshAll(ctx)
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.log.Info("started", zap.String("spec", t.spec), zap.Int("concurrency", t.concurrencyLimit))
	return nil
}

// Stop 停止任务，等待正在执行的一轮结束
func (t *FeedRefreshTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	t.log.Info("stopped")
}

// RefreshAll 刷新所有配置了 URL 的店铺，单个店铺失败不影响其他店铺
func (t *FeedRefreshTask) RefreshAll(ctx context.Context) RefreshResult {
	var res RefreshResult

	shops, err := t.shopRepo.ListWithFeedURL(ctx)
	if err != nil {
		t.log.Error("list shops failed", zap.Error(err))
		return res
	}
	res.Shops = len(shops)
	if len(shops) == 0 {
		t.log.Debug("no shop to refresh")
		return res
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	t.log.Info("refresh begin", zap.Int("shops", len(shops)))

	for i := range shops {
		shop := shops[i]
		select {
		case <-ctx.Done():
			t.log.Warn("refresh interrupted", zap.Error(ctx.Err()))
			wg.Wait()
			return res
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		if i > 0 && t.sleepTime > 0 {
			time.Sleep(t.sleepTime)
		}

		go func(shop *model.Shop) {
			defer wg.Done()
			defer func() { <-sem }()

			auditCtx := ctx
			if shop.UserID != nil {
				auditCtx = middleware.WithAuditInfo(ctx, *shop.UserID, model.FeedSourceTask)
			}
			out, err := t.refresher.RefreshShop(auditCtx, shop)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				t.log.Warn("shop refresh failed",
					zap.Int64("shop_id", shop.ID),
					zap.String("shop", shop.Name),
					zap.Error(err))
				return
			}
			res.Success++
			res.Listings += out.Listings
		}(&shop)
	}

	wg.Wait()
	t.log.Info("refresh done",
		zap.Int("shops", res.Shops),
		zap.Int("success", res.Success),
		zap.Int("failed", res.Failed),
		zap.Int("listings", res.Listings))
	return res
}

// RefreshAllNow 后台立即执行一轮
func (t *FeedRefreshTask) RefreshAllNow() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		t.RefreshAll(ctx)
	}()
}
