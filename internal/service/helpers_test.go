package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/internal/repository"
	"marketplace_v1_202610/pkg/metrics"
	"marketplace_v1_202610/pkg/storage"
)

// ==================== 测试辅助 ====================

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("自动建表失败: %v", err)
	}
	return db
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *recordingNotifier) Notify(msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	events := make([]string, 0, len(n.msgs))
	for _, m := range n.msgs {
		events = append(events, m.Event)
	}
	return events
}

type fakeFetcher struct {
	data  map[string][]byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data[rawURL], nil
}

func createUser(t *testing.T, db *gorm.DB, username, userType string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &model.User{
		Email:    username + "@example.com",
		Username: username,
		Password: string(hash),
		Type:     userType,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return user
}

func createShop(t *testing.T, db *gorm.DB, name string, owner *model.User) *model.Shop {
	t.Helper()
	shop := &model.Shop{Name: name, AcceptingOrders: true}
	if owner != nil {
		shop.UserID = &owner.ID
	}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}
	return shop
}

// createListing 直接写入一条报价，绕过价目表
func createListing(t *testing.T, db *gorm.DB, shop *model.Shop, bp int64, price int64) *model.ProductListing {
	t.Helper()
	ctx := context.Background()
	catalog := repository.NewCatalogRepository(db)
	if _, err := catalog.UpsertCategory(ctx, 224, "Смартфоны"); err != nil {
		t.Fatalf("创建分类失败: %v", err)
	}
	product, err := catalog.GetOrCreateProduct(ctx, 224, "product-"+shop.Name)
	if err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}
	listing := &model.ProductListing{
		ProductID: product.ID, ShopID: shop.ID, BPNumber: bp,
		Name: "model", Quantity: 10, Price: price, PriceRRC: price,
	}
	if err := catalog.CreateListing(ctx, listing); err != nil {
		t.Fatalf("创建报价失败: %v", err)
	}
	return listing
}

type ingestFixture struct {
	db       *gorm.DB
	svc      *IngestService
	fetcher  *fakeFetcher
	files    *storage.LocalStorage
	notifier *recordingNotifier
	metrics  *metrics.Registry
}

func newIngestFixture(t *testing.T, opts IngestOptions) *ingestFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	f := &ingestFixture{
		db:       db,
		fetcher:  &fakeFetcher{data: map[string][]byte{}},
		files:    storage.NewLocalStorage(t.TempDir()),
		notifier: &recordingNotifier{},
		metrics:  metrics.NewRegistry(),
	}
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewSyncRateLimiter()
	}
	f.svc = NewIngestService(
		repository.NewUserRepository(db),
		repository.NewCatalogUnitOfWork(db),
		repository.NewFeedImportRepository(db),
		f.fetcher,
		f.files,
		f.notifier,
		f.metrics,
		zap.NewNop(),
		opts,
	)
	return f
}

type orderFixture struct {
	db       *gorm.DB
	basket   *BasketService
	orders   *OrderService
	notifier *recordingNotifier
}

const testCallbackSecret = "test-callback-secret"

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := setupServiceTestDB(t)
	notifier := &recordingNotifier{}
	orderRepo := repository.NewOrderRepository(db)
	shopRepo := repository.NewShopRepository(db)
	return &orderFixture{
		db:       db,
		notifier: notifier,
		basket: NewBasketService(orderRepo, repository.NewCatalogRepository(db), shopRepo,
			metrics.NewRegistry(), zap.NewNop()),
		orders: NewOrderService(orderRepo, repository.NewContactRepository(db), repository.NewUserRepository(db),
			shopRepo, notifier, metrics.NewRegistry(), zap.NewNop(), testCallbackSecret),
	}
}
