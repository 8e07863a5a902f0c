package repository

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_v1_202610/internal/model"
)

// ==================== 测试辅助 ====================

func setupRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openRepoTestDB(t, ":memory:")
}

func openRepoTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	// :memory: 每个连接是独立的库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("自动建表失败: %v", err)
	}
	return db
}

// seedListing 创建 用户-店铺-分类-商品-报价 的最小数据
func seedListing(t *testing.T, db *gorm.DB, price int64) (*model.Shop, *model.ProductListing) {
	t.Helper()
	ctx := context.Background()

	owner := &model.User{Email: "vendor@example.com", Username: "vendor", Password: "x", Type: model.UserTypeDistributor, IsActive: true}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	shop := &model.Shop{Name: "Связной", UserID: &owner.ID, AcceptingOrders: true}
	if err := db.Create(shop).Error; err != nil {
		t.Fatalf("创建店铺失败: %v", err)
	}

	catalog := NewCatalogRepository(db)
	if _, err := catalog.UpsertCategory(ctx, 224, "Смартфоны"); err != nil {
		t.Fatalf("创建分类失败: %v", err)
	}
	product, err := catalog.GetOrCreateProduct(ctx, 224, "Смартфон Apple iPhone XS Max 512GB (золотистый)")
	if err != nil {
		t.Fatalf("创建商品失败: %v", err)
	}
	listing := &model.ProductListing{
		ProductID: product.ID, ShopID: shop.ID, BPNumber: 4216292,
		Name: "apple/iphone/xs-max", Quantity: 14, Price: price, PriceRRC: price + 10,
	}
	if err := catalog.CreateListing(ctx, listing); err != nil {
		t.Fatalf("创建报价失败: %v", err)
	}
	return shop, listing
}
