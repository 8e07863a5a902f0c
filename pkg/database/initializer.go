package database

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Initializer 数据库初始化器
// 先 AutoMigrate 全部模型，再在 PostgreSQL 上执行嵌入的补充 DDL
type Initializer struct {
	db     *gorm.DB
	sqlFS  fs.FS
	models []interface{}
	log    *zap.Logger
}

// InitOptions 初始化选项
type InitOptions struct {
	Models []interface{}
	// SQLFS 为空时使用内置 PostgresSQL
	SQLFS fs.FS
}

// NewInitializer 创建初始化器
func NewInitializer(db *gorm.DB, log *zap.Logger, opts InitOptions) (*Initializer, error) {
	sqlFS := opts.SQLFS
	if sqlFS == nil {
		sub, err := fs.Sub(PostgresSQL, "sql")
		if err != nil {
			return nil, fmt.Errorf("加载内置 SQL 失败: %w", err)
		}
		sqlFS = sub
	}
	return &Initializer{
		db:     db,
		sqlFS:  sqlFS,
		models: opts.Models,
		log:    log.Named("db-init"),
	}, nil
}

// Initialize 执行初始化
func (i *Initializer) Initialize(ctx context.Context) error {
	start := time.Now()

	i.log.Info("AutoMigrate 开始", zap.Int("models", len(i.models)))
	if err := i.db.WithContext(ctx).AutoMigrate(i.models...); err != nil {
		return fmt.Errorf("AutoMigrate 失败: %w", err)
	}

	if i.db.Dialector.Name() == "postgres" {
		applied, err := i.applySQL(ctx)
		if err != nil {
			return err
		}
		i.log.Info("补充 DDL 已执行", zap.Int("files", applied))
	}

	i.log.Info("数据库初始化完成", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// applySQL 按文件名顺序执行，每个文件一条幂等语句
func (i *Initializer) applySQL(ctx context.Context) (int, error) {
	files, err := fs.Glob(i.sqlFS, "*.sql")
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	for _, name := range files {
		body, err := fs.ReadFile(i.sqlFS, name)
		if err != nil {
			return 0, fmt.Errorf("读取 %s 失败: %w", name, err)
		}
		if err := i.db.WithContext(ctx).Exec(string(body)).Error; err != nil {
			return 0, fmt.Errorf("执行 %s 失败: %w", name, err)
		}
		i.log.Debug("执行 SQL", zap.String("file", name))
	}
	return len(files), nil
}
