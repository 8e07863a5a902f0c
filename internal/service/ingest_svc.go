package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/feed"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/internal/repository"
	"marketplace_v1_202610/pkg/metrics"
	"marketplace_v1_202610/pkg/storage"
)

// ==================== IngestService 价目表导入 ====================

// FeedFetcher 拉取远程价目表
type FeedFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// IngestOptions 导入选项
type IngestOptions struct {
	Cooldown time.Duration // 同一经销商两次手动导入的最小间隔，0 表示不限制
	Archive  bool          // 归档通过 URL 拉取的原始价目表
	Limiter  *middleware.SyncRateLimiter
}

// IngestService 把经销商价目表全量合并进目录
// 一次导入在单个事务内完成，任何一步失败整体回滚
type IngestService struct {
	userRepo   repository.UserRepository
	uow        *repository.CatalogUnitOfWork
	importRepo repository.FeedImportRepository
	fetcher    FeedFetcher
	files      storage.Provider
	notifier   notify.Notifier
	metrics    *metrics.Registry
	log        *zap.Logger
	opts       IngestOptions
}

func NewIngestService(
	userRepo repository.UserRepository,
	uow *repository.CatalogUnitOfWork,
	importRepo repository.FeedImportRepository,
	fetcher FeedFetcher,
	files storage.Provider,
	notifier notify.Notifier,
	reg *metrics.Registry,
	log *zap.Logger,
	opts IngestOptions,
) *IngestService {
	if opts.Limiter == nil {
		opts.Limiter = middleware.GetLimiter()
	}
	return &IngestService{
		userRepo:   userRepo,
		uow:        uow,
		importRepo: importRepo,
		fetcher:    fetcher,
		files:      files,
		notifier:   notifier,
		metrics:    reg,
		log:        log.Named("ingest"),
		opts:       opts,
	}
}

// archivePrefix URL 价目表的归档目录
const archivePrefix = "archive/"

// ==================== 入口 ====================

// ImportFromURL 从 URL 拉取并导入
func (s *IngestService) ImportFromURL(ctx context.Context, userID int64, rawURL string) (*dto.ImportResult, error) {
	user, err := requireDistributor(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	rawURL = strings.TrimSpace(rawURL)
	if err := feed.ValidateURL(rawURL); err != nil {
		return nil, err
	}
	if err := s.checkCooldown(userID); err != nil {
		return nil, err
	}
	res, err := s.importURL(ctx, user, rawURL, model.FeedSourceURL)
	if apperr.KindOf(err) == apperr.KindFeedUnavailable {
		// 拉取失败不占用冷却窗口
		s.opts.Limiter.Reset(middleware.FeedImportKey(userID))
	}
	return res, err
}

// ImportFromFile 从数据目录（或存储桶）中的文件导入
func (s *IngestService) ImportFromFile(ctx context.Context, userID int64, filename string) (*dto.ImportResult, error) {
	user, err := requireDistributor(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	key, err := storage.CleanKey(strings.TrimSpace(filename))
	if err != nil {
		return nil, apperr.Validation("文件名不合法")
	}
	// 归档目录保存各经销商拉取的原始价目表，不作为导入来源
	if key == strings.TrimSuffix(archivePrefix, "/") || strings.HasPrefix(key, archivePrefix) {
		return nil, apperr.Validation("文件名不合法")
	}
	if err := s.checkCooldown(userID); err != nil {
		return nil, err
	}

	return s.run(ctx, user, model.FeedSourceFile, key, func(ctx context.Context, _ string) ([]byte, string, error) {
		data, err := s.files.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", apperr.New(apperr.KindFeedUnavailable, "价目表文件不存在")
		}
		if err != nil {
			return nil, "", apperr.Wrap(apperr.KindFeedUnavailable, "读取价目表文件失败", err)
		}
		return data, "", nil
	})
}

// ImportData 导入已读入内存的价目表，命令行使用
func (s *IngestService) ImportData(ctx context.Context, userID int64, location string, data []byte) (*dto.ImportResult, error) {
	user, err := requireDistributor(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, user, model.FeedSourceCLI, location, func(context.Context, string) ([]byte, string, error) {
		return data, "", nil
	})
}

// RefreshShop 定时任务按店铺保存的 URL 重新导入，不受冷却限制
func (s *IngestService) RefreshShop(ctx context.Context, shop *model.Shop) (*dto.ImportResult, error) {
	if shop.UserID == nil || shop.URL == "" {
		return nil, apperr.Validation("店铺未配置价目表地址")
	}
	user, err := requireDistributor(ctx, s.userRepo, *shop.UserID)
	if err != nil {
		return nil, err
	}
	return s.importURL(ctx, user, shop.URL, model.FeedSourceTask)
}

func (s *IngestService) importURL(ctx context.Context, user *model.User, rawURL, source string) (*dto.ImportResult, error) {
	return s.run(ctx, user, source, rawURL, func(ctx context.Context, batchID string) ([]byte, string, error) {
		data, err := s.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			return nil, "", err
		}
		return data, s.archive(ctx, user.ID, batchID, data), nil
	})
}

func (s *IngestService) checkCooldown(userID int64) error {
	if s.opts.Cooldown <= 0 {
		return nil
	}
	res := s.opts.Limiter.Check(middleware.FeedImportKey(userID), s.opts.Cooldown)
	if !res.Allowed {
		return apperr.New(apperr.KindRateLimited, middleware.FormatRetryMessage(res.RetryAfter))
	}
	return nil
}

// archive 归档失败不影响导入
func (s *IngestService) archive(ctx context.Context, userID int64, batchID string, data []byte) string {
	if !s.opts.Archive || s.files == nil {
		return ""
	}
	key := fmt.Sprintf("%s%d/%s.yaml", archivePrefix, userID, batchID)
	stored, err := s.files.Put(ctx, key, data, "application/x-yaml")
	if err != nil {
		s.log.Warn("archive feed failed", zap.String("batch_id", batchID), zap.Error(err))
		return ""
	}
	return stored
}

// ==================== 执行 ====================

type feedLoader func(ctx context.Context, batchID string) (data []byte, archiveKey string, err error)

// run 加载、导入并写导入记录
// 导入记录在事务之外写入，失败的导入同样留痕
func (s *IngestService) run(ctx context.Context, user *model.User, source, location string, load feedLoader) (*dto.ImportResult, error) {
	start := time.Now()
	batchID := uuid.NewString()
	log := s.log.With(
		zap.String("batch_id", batchID),
		zap.Int64("user_id", user.ID),
		zap.String("source", source),
	)

	rec := &model.FeedImport{
		BatchID:  batchID,
		UserID:   user.ID,
		Source:   source,
		Location: location,
		Status:   model.FeedImportFailed,
		Stats:    datatypes.JSONMap{},
	}

	data, archiveKey, err := load(ctx, batchID)
	rec.ArchiveKey = archiveKey
	var res *dto.ImportResult
	if err == nil {
		res, err = s.apply(ctx, user, source, location, data, rec, log)
	}

	elapsed := time.Since(start)
	rec.DurationMs = elapsed.Milliseconds()
	if err != nil {
		rec.ErrorCode = string(apperr.KindOf(err))
		rec.ErrorMessage = apperr.MessageOf(err)
		log.Warn("feed import failed", zap.String("location", location), zap.Error(err))
	} else {
		rec.Status = model.FeedImportSuccess
		res.BatchID = batchID
		res.DurationMs = rec.DurationMs
		log.Info("feed imported",
			zap.Int64("shop_id", res.ShopID),
			zap.Int("listings", res.Listings),
			zap.Int64("removed", res.Removed),
			zap.Duration("elapsed", elapsed))
	}

	// 请求取消后仍然记录
	if cerr := s.importRepo.Create(context.WithoutCancel(ctx), rec); cerr != nil {
		log.Error("save feed import record failed", zap.Error(cerr))
	}
	s.metrics.ObserveImport(source, rec.Status, rec.Listings, elapsed)

	if err != nil {
		return nil, err
	}
	s.notifier.Notify(notify.Message{
		Event:     notify.EventFeedImported,
		Recipient: user.Email,
		Subject:   fmt.Sprintf("Прайс-лист магазина %s обновлён", res.Shop),
		Body:      fmt.Sprintf("Загружено позиций: %d.", res.Listings),
	})
	return res, nil
}

// apply 在一个事务中完成：锁店铺 → 分类 → 清空旧报价 → 商品/报价/参数 → 更新店铺
func (s *IngestService) apply(ctx context.Context, user *model.User, source, location string, data []byte, rec *model.FeedImport, log *zap.Logger) (*dto.ImportResult, error) {
	f, err := feed.Parse(data)
	if err != nil {
		return nil, err
	}
	rec.ShopName = f.Shop
	rec.Stats["goods"] = len(f.Goods)

	res := &dto.ImportResult{Shop: f.Shop}
	renamed := 0

	err = s.uow.Transaction(ctx, func(uow *repository.CatalogUnitOfWork) error {
		// 同一店铺的并发导入在行锁上串行
		shop, err := uow.Shops.LockByNameAndUser(ctx, f.Shop, user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShopNotFound
		}
		if err != nil {
			return fmt.Errorf("锁定店铺失败: %w", err)
		}
		shopID := shop.ID
		rec.ShopID = &shopID
		res.ShopID = shop.ID

		// 1. 分类
		for _, c := range f.Categories {
			prev, err := uow.Catalog.UpsertCategory(ctx, c.ID, c.Name)
			if err != nil {
				return fmt.Errorf("写入分类 %d 失败: %w", c.ID, err)
			}
			// 分类是全局共享的，价目表可以改名，这里只记录
			if prev != "" && prev != c.Name {
				renamed++
				log.Warn("category renamed by feed",
					zap.Int64("category_id", c.ID),
					zap.String("from", prev),
					zap.String("to", c.Name),
					zap.Int64("shop_id", shop.ID))
			}
			if err := uow.Catalog.LinkCategoryShop(ctx, c.ID, shop.ID); err != nil {
				return fmt.Errorf("关联分类 %d 失败: %w", c.ID, err)
			}
		}
		linked := f.CategoryIDs()

		// 2. 全量替换
		removed, err := uow.Catalog.SoftDeleteListingsByShop(ctx, shop.ID)
		if err != nil {
			return fmt.Errorf("清理旧报价失败: %w", err)
		}
		res.Removed = removed

		// 3. 商品、报价与参数
		params := make(map[string]int64)
		for i := range f.Goods {
			g := &f.Goods[i]

			if _, ok := linked[g.Category]; !ok {
				exists, err := uow.Catalog.CategoryExists(ctx, g.Category)
				if err != nil {
					return err
				}
				if !exists {
					return apperr.Validationf("goods[%d]: 分类 %d 不存在", i, g.Category)
				}
				if err := uow.Catalog.LinkCategoryShop(ctx, g.Category, shop.ID); err != nil {
					return fmt.Errorf("关联分类 %d 失败: %w", g.Category, err)
				}
				linked[g.Category] = struct{}{}
			}

			product, err := uow.Catalog.GetOrCreateProduct(ctx, g.Category, g.Name)
			if err != nil {
				return fmt.Errorf("goods[%d]: 写入商品失败: %w", i, err)
			}

			listing := &model.ProductListing{
				ProductID: product.ID,
				ShopID:    shop.ID,
				BPNumber:  g.ID,
				Name:      g.Model,
				Quantity:  g.Quantity,
				Price:     g.Price,
				PriceRRC:  g.PriceRRC,
			}
			if err := uow.Catalog.CreateListing(ctx, listing); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("goods[%d]: 报价 %d 重复", i, g.ID), err)
				}
				return fmt.Errorf("goods[%d]: 写入报价失败: %w", i, err)
			}

			for _, p := range g.Params() {
				paramID, ok := params[p.Name]
				if !ok {
					param, err := uow.Catalog.GetOrCreateParameter(ctx, p.Name)
					if err != nil {
						return fmt.Errorf("goods[%d]: 写入参数 %q 失败: %w", i, p.Name, err)
					}
					paramID = param.ID
					params[p.Name] = paramID
				}
				err := uow.Catalog.SetListingParameter(ctx, &model.ListingParameter{
					ListingID:   listing.ID,
					ParameterID: paramID,
					Value:       p.Value,
				})
				if err != nil {
					return fmt.Errorf("goods[%d]: 写入参数值失败: %w", i, err)
				}
				res.Parameters++
			}
			res.Listings++
		}
		res.Categories = len(linked)

		// 4. 店铺
		fields := map[string]interface{}{"last_import_at": time.Now()}
		switch source {
		case model.FeedSourceURL:
			fields["url"] = location
		case model.FeedSourceFile:
			fields["filename"] = location
		}
		return uow.Shops.UpdateFields(ctx, shop.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	rec.Categories = res.Categories
	rec.Listings = res.Listings
	rec.Parameters = res.Parameters
	rec.Stats["removed"] = res.Removed
	rec.Stats["renamed_categories"] = renamed
	return res, nil
}
