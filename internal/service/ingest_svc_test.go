package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
)

// ==================== 测试数据 ====================

const feedURL = "https://partner.example.com/price.yaml"

const shopFeed = `shop: Связной
categories:
  - id: 224
    name: Смартфоны
  - id: 15
    name: Аксессуары
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Смартфон Apple iPhone XS Max 512GB (золотистый)
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Диагональ (дюйм)": 6.5
      "Цвет": золотистый
  - id: 4672670
    category: 15
    model: apple/airpods
    name: Наушники Apple AirPods
    price: 9990
    price_rrc: 11990
    quantity: 0
`

// 第二条报价引用不存在的分类
const badCategoryFeed = `shop: Связной
categories:
  - id: 224
    name: Смартфоны
goods:
  - id: 1
    category: 224
    model: m1
    name: Телефон
    price: 100
    price_rrc: 120
    quantity: 1
  - id: 2
    category: 999
    model: m2
    name: Чехол
    price: 10
    price_rrc: 12
    quantity: 1
`

const duplicateFeed = `shop: Связной
categories:
  - id: 224
    name: Смартфоны
goods:
  - id: 7
    category: 224
    model: m1
    name: Телефон
    price: 100
    price_rrc: 120
    quantity: 1
  - id: 7
    category: 224
    model: m1
    name: Телефон
    price: 100
    price_rrc: 120
    quantity: 1
`

func liveListings(t *testing.T, f *ingestFixture, shopID int64) []model.ProductListing {
	t.Helper()
	var listings []model.ProductListing
	if err := f.db.Where("shop_id = ?", shopID).Order("bp_number").Find(&listings).Error; err != nil {
		t.Fatalf("查询报价失败: %v", err)
	}
	return listings
}

func importRecords(t *testing.T, f *ingestFixture) []model.FeedImport {
	t.Helper()
	var records []model.FeedImport
	if err := f.db.Order("id").Find(&records).Error; err != nil {
		t.Fatalf("查询导入记录失败: %v", err)
	}
	return records
}

// ==================== 单元测试 ====================

func TestImportData_FullReplace(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	shop := createShop(t, f.db, "Связной", owner)

	res, err := f.svc.ImportData(ctx, owner.ID, "price.yaml", []byte(shopFeed))
	require.NoError(t, err)
	assert.Equal(t, shop.ID, res.ShopID)
	assert.Equal(t, 2, res.Categories)
	assert.Equal(t, 2, res.Listings)
	assert.Equal(t, 2, res.Parameters)
	assert.EqualValues(t, 0, res.Removed)
	assert.NotEmpty(t, res.BatchID)

	listings := liveListings(t, f, shop.ID)
	require.Len(t, listings, 2)
	assert.Equal(t, int64(4216292), listings[0].BPNumber)
	assert.Equal(t, int64(110000), listings[0].Price)

	// 再导入同一份价目表，在线报价集合不变，旧报价被软删除
	res, err = f.svc.ImportData(ctx, owner.ID, "price.yaml", []byte(shopFeed))
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Removed)

	again := liveListings(t, f, shop.ID)
	require.Len(t, again, 2)
	assert.Equal(t, listings[0].BPNumber, again[0].BPNumber)
	assert.Equal(t, listings[0].ProductID, again[0].ProductID, "商品应复用")

	var total int64
	f.db.Unscoped().Model(&model.ProductListing{}).Where("shop_id = ?", shop.ID).Count(&total)
	assert.EqualValues(t, 4, total)

	var products int64
	f.db.Model(&model.Product{}).Count(&products)
	assert.EqualValues(t, 2, products)

	records := importRecords(t, f)
	require.Len(t, records, 2)
	assert.Equal(t, model.FeedImportSuccess, records[1].Status)
	assert.Equal(t, model.FeedSourceCLI, records[1].Source)

	var reloaded model.Shop
	f.db.First(&reloaded, shop.ID)
	assert.NotNil(t, reloaded.LastImportAt)

	assert.Contains(t, f.notifier.events(), notify.EventFeedImported)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.FeedImports.WithLabelValues(model.FeedSourceCLI, model.FeedImportSuccess)))
}

func TestImportData_RollbackOnBadEntry(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	shop := createShop(t, f.db, "Связной", owner)

	_, err := f.svc.ImportData(ctx, owner.ID, "price.yaml", []byte(shopFeed))
	require.NoError(t, err)
	before := liveListings(t, f, shop.ID)

	_, err = f.svc.ImportData(ctx, owner.ID, "bad.yaml", []byte(badCategoryFeed))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "goods[1]")

	after := liveListings(t, f, shop.ID)
	require.Len(t, after, len(before), "失败的导入必须整体回滚")
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
	}

	var phone int64
	f.db.Model(&model.Product{}).Where("name = ?", "Телефон").Count(&phone)
	assert.EqualValues(t, 0, phone, "回滚后不应残留新商品")

	records := importRecords(t, f)
	require.Len(t, records, 2)
	assert.Equal(t, model.FeedImportFailed, records[1].Status)
	assert.Equal(t, string(apperr.KindValidation), records[1].ErrorCode)
}

func TestImportData_DuplicateListing(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	shop := createShop(t, f.db, "Связной", owner)

	_, err := f.svc.ImportData(context.Background(), owner.ID, "dup.yaml", []byte(duplicateFeed))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Empty(t, liveListings(t, f, shop.ID))
}

func TestImportData_ClientForbidden(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	client := createUser(t, f.db, "buyer", model.UserTypeClient)

	_, err := f.svc.ImportData(context.Background(), client.ID, "price.yaml", []byte(shopFeed))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	var categories int64
	f.db.Model(&model.Category{}).Count(&categories)
	assert.EqualValues(t, 0, categories)
	assert.Empty(t, importRecords(t, f), "鉴权失败不写导入记录")
}

func TestImportData_ShopNotOwned(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	other := createUser(t, f.db, "mvideo", model.UserTypeDistributor)
	createShop(t, f.db, "Связной", owner)

	_, err := f.svc.ImportData(context.Background(), other.ID, "price.yaml", []byte(shopFeed))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrShopNotFound))

	var categories int64
	f.db.Model(&model.Category{}).Count(&categories)
	assert.EqualValues(t, 0, categories, "分类写入应随事务回滚")

	records := importRecords(t, f)
	require.Len(t, records, 1)
	assert.Equal(t, string(apperr.KindShopNotFound), records[0].ErrorCode)
	assert.Equal(t, "Связной", records[0].ShopName)
}

func TestImportData_ParseError(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	createShop(t, f.db, "Связной", owner)

	_, err := f.svc.ImportData(context.Background(), owner.ID, "broken.yaml", []byte("shop: [unclosed"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindFeedParse, apperr.KindOf(err))

	records := importRecords(t, f)
	require.Len(t, records, 1)
	assert.Equal(t, string(apperr.KindFeedParse), records[0].ErrorCode)
	assert.Empty(t, f.notifier.events())
}

func TestImportData_CategoryRename(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	createShop(t, f.db, "Связной", owner)

	require.NoError(t, f.db.Create(&model.Category{ID: 224, Name: "Телефоны"}).Error)

	_, err := f.svc.ImportData(ctx, owner.ID, "price.yaml", []byte(shopFeed))
	require.NoError(t, err)

	var c model.Category
	require.NoError(t, f.db.First(&c, 224).Error)
	assert.Equal(t, "Смартфоны", c.Name)

	records := importRecords(t, f)
	require.Len(t, records, 1)
	// JSONMap 读回时数字为 json.Number
	assert.Equal(t, "1", fmt.Sprint(records[0].Stats["renamed_categories"]))
}

func TestImportFromURL(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{Cooldown: time.Minute, Archive: true})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	shop := createShop(t, f.db, "Связной", owner)
	f.fetcher.data[feedURL] = []byte(shopFeed)

	res, err := f.svc.ImportFromURL(ctx, owner.ID, feedURL)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Listings)

	var reloaded model.Shop
	f.db.First(&reloaded, shop.ID)
	assert.Equal(t, feedURL, reloaded.URL)

	records := importRecords(t, f)
	require.Len(t, records, 1)
	assert.Equal(t, model.FeedSourceURL, records[0].Source)
	require.NotEmpty(t, records[0].ArchiveKey)

	archived, err := f.files.Get(ctx, fmt.Sprintf("archive/%d/%s.yaml", owner.ID, res.BatchID))
	require.NoError(t, err)
	assert.Equal(t, shopFeed, string(archived))

	// 冷却期内再次导入被拒绝，且不拉取
	_, err = f.svc.ImportFromURL(ctx, owner.ID, feedURL)
	require.Error(t, err)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
	assert.Equal(t, 1, f.fetcher.calls)
}

func TestImportFromURL_Invalid(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)

	_, err := f.svc.ImportFromURL(context.Background(), owner.ID, "not a url")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Zero(t, f.fetcher.calls)

	long := "https://example.com/" + strings.Repeat("a", 500)
	_, err = f.svc.ImportFromURL(context.Background(), owner.ID, long)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("超长 URL 应返回校验错误, got %v", err)
	}
	assert.Zero(t, f.fetcher.calls)
	assert.Empty(t, importRecords(t, f))
}

func TestImportFromURL_Unavailable(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{Cooldown: time.Hour})
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	createShop(t, f.db, "Связной", owner)
	f.fetcher.err = apperr.New(apperr.KindFeedUnavailable, "价目表地址返回 404")

	_, err := f.svc.ImportFromURL(context.Background(), owner.ID, feedURL)
	require.Error(t, err)
	assert.Equal(t, apperr.KindFeedUnavailable, apperr.KindOf(err))

	records := importRecords(t, f)
	require.Len(t, records, 1)
	assert.Equal(t, model.FeedImportFailed, records[0].Status)

	// 拉取失败后可以立即重试
	f.fetcher.err = nil
	f.fetcher.data[feedURL] = []byte(shopFeed)
	_, err = f.svc.ImportFromURL(context.Background(), owner.ID, feedURL)
	require.NoError(t, err)
}

func TestImportFromFile(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	shop := createShop(t, f.db, "Связной", owner)

	_, err := f.files.Put(ctx, "shop1.yaml", []byte(shopFeed), "application/x-yaml")
	require.NoError(t, err)

	res, err := f.svc.ImportFromFile(ctx, owner.ID, "shop1.yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Listings)

	var reloaded model.Shop
	f.db.First(&reloaded, shop.ID)
	assert.Equal(t, "shop1.yaml", reloaded.Filename)

	_, err = f.svc.ImportFromFile(ctx, owner.ID, "../../etc/passwd")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.ImportFromFile(ctx, owner.ID, "missing.yaml")
	assert.Equal(t, apperr.KindFeedUnavailable, apperr.KindOf(err))
}

func TestImportFromFile_ArchiveRejected(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	other := createUser(t, f.db, "euroset", model.UserTypeDistributor)
	createShop(t, f.db, "Связной", owner)

	// 其他经销商的归档价目表
	key := fmt.Sprintf("archive/%d/batch.yaml", other.ID)
	_, err := f.files.Put(ctx, key, []byte(shopFeed), "application/x-yaml")
	require.NoError(t, err)

	for _, name := range []string{key, "./" + key, "archive", "archive/"} {
		_, err = f.svc.ImportFromFile(ctx, owner.ID, name)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("%q 应返回校验错误, got %v", name, err)
		}
	}
	assert.Empty(t, importRecords(t, f))

	// archive 前缀以外的同名目录不受影响
	_, err = f.files.Put(ctx, "archives/shop1.yaml", []byte(shopFeed), "application/x-yaml")
	require.NoError(t, err)
	_, err = f.svc.ImportFromFile(ctx, owner.ID, "archives/shop1.yaml")
	require.NoError(t, err)
}

func TestRefreshShop(t *testing.T) {
	f := newIngestFixture(t, IngestOptions{Cooldown: time.Hour})
	ctx := context.Background()
	owner := createUser(t, f.db, "svyaznoy", model.UserTypeDistributor)
	shop := createShop(t, f.db, "Связной", owner)
	shop.URL = feedURL
	f.fetcher.data[feedURL] = []byte(shopFeed)

	// 定时刷新不受冷却限制
	for i := 0; i < 2; i++ {
		_, err := f.svc.RefreshShop(ctx, shop)
		require.NoError(t, err)
	}
	records := importRecords(t, f)
	require.Len(t, records, 2)
	assert.Equal(t, model.FeedSourceTask, records[0].Source)

	_, err := f.svc.RefreshShop(ctx, &model.Shop{Name: "orphan"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
