package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"marketplace_v1_202610/internal/controller"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/pkg/logger"
	"marketplace_v1_202610/pkg/metrics"
)

// Controllers 所有控制器
type Controllers struct {
	User    *controller.UserController
	Catalog *controller.CatalogController
	Partner *controller.PartnerController
	Order   *controller.OrderController
	Payment *controller.PaymentController
}

// Options 路由选项
type Options struct {
	Metrics   *metrics.Registry
	AuthRPS   float64 // 注册、登录按 IP 限流，<=0 不限制
	AuthBurst int
	// DocsDir swag init --outputTypes json 生成的目录，为空时不挂载文档
	DocsDir string
}

// New 创建 gin 引擎并注册全局中间件
func New(log *zap.Logger, ctl *Controllers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		opts.Metrics.GinMiddleware(),
	)
	InitRoutes(r, ctl, opts)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, ctl *Controllers, opts Options) {
	// 1. 运维
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"Status": true})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	if opts.DocsDir != "" {
		r.Static("/docs", opts.DocsDir)
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))
	}

	// 2. API 路由组
	api := r.Group("/api/v1")
	authLimit := middleware.AuthRateLimit(opts.AuthRPS, opts.AuthBurst)
	auth := []gin.HandlerFunc{middleware.JWTAuth(), middleware.AuditContext()}

	// user 用户
	user := api.Group("/user")
	{
		user.POST("/register", authLimit, ctl.User.Register)
		user.POST("/login", authLimit, ctl.User.Login)

		me := user.Group("", auth...)
		me.GET("/details", ctl.User.GetDetails)
		me.PUT("/details", ctl.User.UpdateDetails)
		me.GET("/contacts", ctl.User.ListContacts)
		me.POST("/contacts", ctl.User.CreateContact)
		me.DELETE("/contacts/:id", ctl.User.DeleteContact)
	}

	// catalog 公开目录
	api.GET("/categories", ctl.Catalog.ListCategories)
	api.GET("/shops", ctl.Catalog.ListShops)
	api.GET("/products", ctl.Catalog.ListProducts)

	// partner 经销商，令牌中的角色只做预检，服务层以数据库为准
	partner := api.Group("/partner", append(auth, middleware.RequireRole(middleware.RoleDistributor))...)
	{
		partner.GET("/shop", ctl.Partner.GetShop)
		partner.PUT("/shop", ctl.Partner.UpsertShop)
		partner.POST("/update", ctl.Partner.Update)
		partner.POST("/file_update", ctl.Partner.FileUpdate)
		partner.GET("/imports", ctl.Partner.ListImports)
		partner.POST("/orders/:id/status", ctl.Partner.AdvanceOrder)
	}

	// basket 购物车
	basket := api.Group("/basket", auth...)
	{
		basket.GET("", ctl.Order.GetBasket)
		basket.POST("/items", ctl.Order.SetItem)
		basket.DELETE("/items/:id", ctl.Order.RemoveItem)
		basket.POST("/confirm", ctl.Order.Confirm)
	}

	// orders 订单
	orders := api.Group("/orders", auth...)
	{
		orders.GET("", ctl.Order.List)
		orders.GET("/:id", ctl.Order.Get)
		orders.POST("/:id/cancel", ctl.Order.Cancel)
	}

	// payments 支付网关回调，靠签名鉴权
	api.POST("/payments/callback", ctl.Payment.Callback)
}
