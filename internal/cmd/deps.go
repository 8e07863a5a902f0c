package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_v1_202610/internal/config"
	"marketplace_v1_202610/internal/controller"
	"marketplace_v1_202610/internal/feed"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/internal/repository"
	"marketplace_v1_202610/internal/router"
	"marketplace_v1_202610/internal/service"
	"marketplace_v1_202610/internal/task"
	"marketplace_v1_202610/pkg/database"
	"marketplace_v1_202610/pkg/logger"
	"marketplace_v1_202610/pkg/metrics"
	"marketplace_v1_202610/pkg/storage"
)

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config      *config.Config
	Log         *zap.Logger
	DB          *gorm.DB
	Metrics     *metrics.Registry
	Dispatcher  *notify.Dispatcher
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers

	closers []func()
}

// Repositories 仓库集合
type Repositories struct {
	User       repository.UserRepository
	Contact    repository.ContactRepository
	Shop       repository.ShopRepository
	Catalog    repository.CatalogRepository
	Order      repository.OrderRepository
	FeedImport repository.FeedImportRepository
	CatalogUow *repository.CatalogUnitOfWork
}

// Services 服务集合
type Services struct {
	User    *service.UserService
	Contact *service.ContactService
	Catalog *service.CatalogService
	Ingest  *service.IngestService
	Basket  *service.BasketService
	Order   *service.OrderService
}

// Close 按创建的逆序释放资源
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	_ = d.Log.Sync()
}

// ==================== 初始化 ====================

// loadBase 读取配置，创建 logger 和数据库连接
func loadBase() (*Dependencies, error) {
	cfg, err := config.Load(configPaths()...)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	db, err := initDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{Config: cfg, Log: log, DB: db}
	deps.closers = append(deps.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return deps, nil
}

// initDatabase 连接 PostgreSQL 并注册审计回调
func initDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := database.InitDB(database.Options{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          logger.NewGormLogger(log, cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, err
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		return nil, fmt.Errorf("注册审计回调失败: %w", err)
	}
	log.Info("数据库连接成功",
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName))
	return db, nil
}

// migrate 建表并执行补充 DDL
func migrate(ctx context.Context, deps *Dependencies) error {
	initializer, err := database.NewInitializer(deps.DB, deps.Log, database.InitOptions{
		Models: model.AllModels(),
	})
	if err != nil {
		return err
	}
	return initializer.Initialize(ctx)
}

// initDependencies 在 loadBase 的基础上装配业务依赖
func initDependencies(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config

	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenTTL: cfg.JWT.AccessTokenTTL,
		Issuer:         cfg.JWT.Issuer,
	})

	deps.Metrics = metrics.NewRegistry()

	files, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}

	sender, err := initSender(cfg, deps)
	if err != nil {
		return err
	}
	deps.Dispatcher = notify.NewDispatcher(sender, deps.Log, deps.Metrics, notify.DispatcherOptions{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
	})
	// Stop 先于 sender 关闭执行
	deps.closers = append(deps.closers, deps.Dispatcher.Stop)

	// -------- Repository 层 --------
	deps.Repos = initRepositories(deps.DB)
	repos := deps.Repos

	// -------- Service 层 --------
	deps.Services = &Services{
		User:    service.NewUserService(repos.User, deps.Dispatcher, deps.Log),
		Contact: service.NewContactService(repos.Contact),
		Catalog: service.NewCatalogService(repos.User, repos.Shop, repos.Catalog, repos.FeedImport, deps.Log),
		Ingest: service.NewIngestService(
			repos.User, repos.CatalogUow, repos.FeedImport,
			feed.NewFetcher(cfg.Feed.FetchTimeout, cfg.Feed.MaxSize),
			files, deps.Dispatcher, deps.Metrics, deps.Log,
			service.IngestOptions{
				Cooldown: cfg.Feed.ImportCooldown,
				Archive:  cfg.Feed.Archive,
			},
		),
		Basket: service.NewBasketService(repos.Order, repos.Catalog, repos.Shop, deps.Metrics, deps.Log),
		Order: service.NewOrderService(repos.Order, repos.Contact, repos.User, repos.Shop,
			deps.Dispatcher, deps.Metrics, deps.Log, cfg.Payment.CallbackSecret),
	}

	// -------- Controller 层 --------
	deps.Controllers = initControllers(deps.Services)
	return nil
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       repository.NewUserRepository(db),
		Contact:    repository.NewContactRepository(db),
		Shop:       repository.NewShopRepository(db),
		Catalog:    repository.NewCatalogRepository(db),
		Order:      repository.NewOrderRepository(db),
		FeedImport: repository.NewFeedImportRepository(db),
		CatalogUow: repository.NewCatalogUnitOfWork(db),
	}
}

// initStorage 价目表文件存储，local 时根目录为 feed.data_dir
func initStorage(ctx context.Context, cfg *config.Config) (storage.Provider, error) {
	sc := cfg.Feed.Storage
	basePath := sc.BasePath
	if sc.Provider == "local" || sc.Provider == "" {
		basePath = cfg.Feed.DataDir
	}
	files, err := storage.NewProvider(ctx, &storage.Config{
		Provider:  sc.Provider,
		Bucket:    sc.Bucket,
		Region:    sc.Region,
		AccessKey: sc.AccessKey,
		SecretKey: sc.SecretKey,
		Endpoint:  sc.Endpoint,
		BasePath:  basePath,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化存储失败: %w", err)
	}
	return files, nil
}

// initSender 按驱动选择通知通道
func initSender(cfg *config.Config, deps *Dependencies) (notify.Sender, error) {
	switch cfg.Notify.Driver {
	case "kafka":
		k := notify.NewKafkaSender(cfg.Notify.Brokers, cfg.Notify.Topic)
		deps.closers = append(deps.closers, func() {
			if err := k.Close(); err != nil {
				deps.Log.Warn("关闭 kafka writer 失败", zap.Error(err))
			}
		})
		return k, nil
	case "log", "":
		return notify.NewLogSender(deps.Log), nil
	default:
		return nil, fmt.Errorf("不支持的通知驱动: %s", cfg.Notify.Driver)
	}
}

// initControllers 初始化所有控制器
func initControllers(svc *Services) *router.Controllers {
	return &router.Controllers{
		User:    controller.NewUserController(svc.User, svc.Contact),
		Catalog: controller.NewCatalogController(svc.Catalog),
		Partner: controller.NewPartnerController(svc.Catalog, svc.Ingest, svc.Order),
		Order:   controller.NewOrderController(svc.Basket, svc.Order),
		Payment: controller.NewPaymentController(svc.Order),
	}
}

// initTasks 创建定时任务管理器
func initTasks(deps *Dependencies) *task.TaskManager {
	cfg := deps.Config.Task
	return task.NewTaskManager(&task.TaskManagerDeps{
		ShopRepo:   deps.Repos.Shop,
		ImportRepo: deps.Repos.FeedImport,
		Refresher:  deps.Services.Ingest,
		Logger:     deps.Log,
	}, &task.TaskManagerConfig{
		FeedRefreshEnabled:     cfg.FeedRefreshEnabled,
		FeedRefreshSpec:        cfg.FeedRefreshSpec,
		FeedRefreshConcurrency: cfg.FeedRefreshConcurrency,
		ImportCleanupEnabled:   cfg.ImportRetention > 0,
		ImportRetention:        cfg.ImportRetention,
	})
}
