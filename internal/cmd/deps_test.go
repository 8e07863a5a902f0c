package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_v1_202610/internal/config"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/pkg/storage"
)

func newTestDeps(t *testing.T) *Dependencies {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.Feed.DataDir = t.TempDir()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	deps := &Dependencies{Config: cfg, Log: zap.NewNop(), DB: db}
	deps.closers = append(deps.closers, func() { _ = sqlDB.Close() })
	return deps
}

func TestInitDependencies(t *testing.T) {
	deps := newTestDeps(t)
	defer deps.Close()
	ctx := context.Background()

	require.NoError(t, migrate(ctx, deps))
	require.NoError(t, initDependencies(ctx, deps))

	assert.NotNil(t, deps.Dispatcher)
	assert.NotNil(t, deps.Controllers.Partner)
	assert.NotNil(t, deps.Controllers.Payment)
	assert.True(t, deps.DB.Migrator().HasTable(&model.FeedImport{}))

	tasks := initTasks(deps)
	assert.False(t, tasks.Status()["feed_refresh"], "默认关闭定时刷新")
	assert.True(t, tasks.Status()["import_cleanup"])
}

func TestInitStorage_LocalUsesDataDir(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	cfg.Feed.DataDir = t.TempDir()

	files, err := initStorage(context.Background(), cfg)
	require.NoError(t, err)
	local, ok := files.(*storage.LocalStorage)
	require.True(t, ok, "默认应为本地存储")

	_, err = local.Put(context.Background(), "a.yaml", []byte("shop: A"), "application/x-yaml")
	require.NoError(t, err)
	data, err := files.Get(context.Background(), "a.yaml")
	require.NoError(t, err)
	assert.Equal(t, "shop: A", string(data))
}

func TestInitSender(t *testing.T) {
	deps := newTestDeps(t)
	defer deps.Close()

	sender, err := initSender(deps.Config, deps)
	require.NoError(t, err)
	assert.IsType(t, &notify.LogSender{}, sender)

	deps.Config.Notify.Driver = "kafka"
	deps.Config.Notify.Brokers = []string{"localhost:9092"}
	sender, err = initSender(deps.Config, deps)
	require.NoError(t, err)
	assert.IsType(t, &notify.KafkaSender{}, sender)

	deps.Config.Notify.Driver = "smtp"
	_, err = initSender(deps.Config, deps)
	assert.Error(t, err)
}
