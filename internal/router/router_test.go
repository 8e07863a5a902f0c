package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_v1_202610/internal/controller"
	"marketplace_v1_202610/internal/feed"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/internal/repository"
	"marketplace_v1_202610/internal/service"
	"marketplace_v1_202610/pkg/metrics"
	"marketplace_v1_202610/pkg/storage"
)

// ==================== 测试辅助 ====================

const testSecret = "callback-secret"

const testFeed = `shop: Связной
categories:
  - id: 224
    name: Смартфоны
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Смартфон Apple iPhone XS Max 512GB
    price: 100
    price_rrc: 120
    quantity: 14
    parameters:
      "Цвет": золотистый
  - id: 4216293
    category: 224
    model: apple/iphone/xr
    name: Смартфон Apple iPhone XR
    price: 50
    price_rrc: 60
    quantity: 3
`

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	files  *storage.LocalStorage
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetJWTConfig(&middleware.JWTConfig{SecretKey: "router-test", AccessTokenTTL: time.Hour, Issuer: "marketplace"})

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

	log := zap.NewNop()
	reg := metrics.NewRegistry()
	files := storage.NewLocalStorage(t.TempDir())
	notifier := notify.Nop{}

	userRepo := repository.NewUserRepository(db)
	shopRepo := repository.NewShopRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	contactRepo := repository.NewContactRepository(db)
	importRepo := repository.NewFeedImportRepository(db)

	userSvc := service.NewUserService(userRepo, notifier, log)
	contactSvc := service.NewContactService(contactRepo)
	catalogSvc := service.NewCatalogService(userRepo, shopRepo, catalogRepo, importRepo, log)
	ingestSvc := service.NewIngestService(userRepo, repository.NewCatalogUnitOfWork(db), importRepo,
		feed.NewFetcher(0, 0), files, notifier, reg, log,
		service.IngestOptions{Limiter: middleware.NewSyncRateLimiter()})
	basketSvc := service.NewBasketService(orderRepo, catalogRepo, shopRepo, reg, log)
	orderSvc := service.NewOrderService(orderRepo, contactRepo, userRepo, shopRepo, notifier, reg, log, testSecret)

	engine := New(log, &Controllers{
		User:    controller.NewUserController(userSvc, contactSvc),
		Catalog: controller.NewCatalogController(catalogSvc),
		Partner: controller.NewPartnerController(catalogSvc, ingestSvc, orderSvc),
		Order:   controller.NewOrderController(basketSvc, orderSvc),
		Payment: controller.NewPaymentController(orderSvc),
	}, Options{Metrics: reg})

	return &testServer{engine: engine, db: db, files: files}
}

type envelope struct {
	Status interface{}     `json:"Status"`
	Data   json.RawMessage `json:"Data"`
	Error  string          `json:"Error"`
	Code   string          `json:"Code"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		raw = b
	default:
		raw, _ = json.Marshal(b)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("响应不是合法 JSON: %s", w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) signup(t *testing.T, username, userType string) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/v1/user/register", "", map[string]string{
		"email": username + "@example.com", "username": username, "password": "password123", "type": userType,
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Status, env.Error)

	code, env = s.do(t, http.MethodPost, "/api/v1/user/login", "", map[string]string{
		"login": username, "password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// ==================== 集成测试 ====================

func TestMarketplaceFlow(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	partner := s.signup(t, "svyaznoy", model.UserTypeDistributor)
	buyer := s.signup(t, "buyer", model.UserTypeClient)

	// 1. 经销商建店并导入价目表
	code, env := s.do(t, http.MethodPut, "/api/v1/partner/shop", partner, map[string]interface{}{"name": "Связной"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Status, env.Error)

	_, err := s.files.Put(ctx, "svyaznoy.yaml", []byte(testFeed), "application/x-yaml")
	require.NoError(t, err)

	code, env = s.do(t, http.MethodPost, "/api/v1/partner/file_update", partner, map[string]string{"filename": "svyaznoy.yaml"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Status, env.Error)

	// 买家不能导入
	code, env = s.do(t, http.MethodPost, "/api/v1/partner/file_update", buyer, map[string]string{"filename": "svyaznoy.yaml"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Code)

	// 2. 公开目录
	code, env = s.do(t, http.MethodGet, "/api/v1/products?category_id=224", "", nil)
	require.Equal(t, http.StatusOK, code)
	var listings []struct {
		ID     int64 `json:"id"`
		ShopID int64 `json:"shop_id"`
		Price  int64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listings))
	require.Len(t, listings, 2)

	// 3. 购物车
	code, env = s.do(t, http.MethodGet, "/api/v1/basket", "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "unauthorized", env.Code)

	for _, item := range []struct {
		idx, qty int
	}{{0, 2}, {1, 1}} {
		l := listings[item.idx]
		code, env = s.do(t, http.MethodPost, "/api/v1/basket/items", buyer, map[string]interface{}{
			"listing_id": l.ID, "shop_id": l.ShopID, "quantity": item.qty,
		})
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, true, env.Status, env.Error)
	}

	var basket struct {
		ID    int64 `json:"id"`
		Total int64 `json:"total"`
	}
	_, env = s.do(t, http.MethodGet, "/api/v1/basket", buyer, nil)
	require.NoError(t, json.Unmarshal(env.Data, &basket))
	assert.EqualValues(t, 250, basket.Total)

	code, env = s.do(t, http.MethodPost, "/api/v1/basket/confirm", buyer, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Status, env.Error)

	// 4. 订单与支付回调
	_, env = s.do(t, http.MethodGet, "/api/v1/orders", buyer, nil)
	var orders []struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
		Total  int64  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, basket.ID, orders[0].ID)
	assert.Equal(t, model.OrderStatusConfirmed, orders[0].Status)
	assert.EqualValues(t, 250, orders[0].Total)

	payload := []byte(fmt.Sprintf(`{"order_id":%d}`, basket.ID))
	code, env = s.do(t, http.MethodPost, "/api/v1/payments/callback", "", payload, controller.HeaderSignature, "00")
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Code)

	code, env = s.do(t, http.MethodPost, "/api/v1/payments/callback", "", payload,
		controller.HeaderSignature, service.SignPayload([]byte(testSecret), payload))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Status, env.Error)

	// 5. 经销商推进履约
	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/partner/orders/%d/status", basket.ID), partner,
		map[string]string{"status": model.OrderStatusAssembly})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, env.Status, env.Error)

	// 终态之前买家仍可取消
	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", basket.ID), buyer, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Status, env.Error)
}

func TestPartnerRoutes_RequireDistributor(t *testing.T) {
	s := setupTestServer(t)
	buyer := s.signup(t, "buyer", model.UserTypeClient)

	code, env := s.do(t, http.MethodPost, "/api/v1/partner/update", buyer, map[string]string{"url": "https://example.com/a.yaml"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", env.Code)

	var categories int64
	s.db.Model(&model.Category{}).Count(&categories)
	assert.Zero(t, categories)
}

func TestPartnerShop_NotFound(t *testing.T) {
	s := setupTestServer(t)
	partner := s.signup(t, "svyaznoy", model.UserTypeDistributor)

	code, env := s.do(t, http.MethodGet, "/api/v1/partner/shop", partner, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "shop_not_found", env.Code)
}

func TestOpsRoutes(t *testing.T) {
	s := setupTestServer(t)

	code, env := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "market_http_requests_total")
}
