package repository

import (
	"context"

	"gorm.io/gorm"
)

// CatalogUnitOfWork 价目表导入工作单元（事务）
// 店铺锁定与目录写入必须在同一事务内完成
type CatalogUnitOfWork struct {
	db      *gorm.DB
	Shops   ShopRepository
	Catalog CatalogRepository
}

// NewCatalogUnitOfWork 创建工作单元
func NewCatalogUnitOfWork(db *gorm.DB) *CatalogUnitOfWork {
	return &CatalogUnitOfWork{
		db:      db,
		Shops:   NewShopRepository(db),
		Catalog: NewCatalogRepository(db),
	}
}

// Transaction 执行事务，fn 返回错误时整体回滚
func (u *CatalogUnitOfWork) Transaction(ctx context.Context, fn func(uow *CatalogUnitOfWork) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUow := &CatalogUnitOfWork{
			db:      tx,
			Shops:   u.Shops.WithTx(tx),
			Catalog: u.Catalog.WithTx(tx),
		}
		return fn(txUow)
	})
}
