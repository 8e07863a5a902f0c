package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace_v1_202610/internal/model"
)

// ==================== 接口定义 ====================

// UserRepository 用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByLogin 按邮箱或用户名查找
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error
}

// ContactRepository 联系人仓储接口
type ContactRepository interface {
	Create(ctx context.Context, card *model.ContactCard) error
	ListByUser(ctx context.Context, userID int64) ([]model.ContactCard, error)
	GetOwned(ctx context.Context, userID, id int64) (*model.ContactCard, error)
	DeleteOwned(ctx context.Context, userID, id int64) (int64, error)
}

// ==================== 仓储实现 ====================

type userRepo struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

type contactRepo struct {
	db *gorm.DB
}

// NewContactRepository 创建联系人仓储
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepo{db: db}
}

func (r *contactRepo) Create(ctx context.Context, card *model.ContactCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *contactRepo) ListByUser(ctx context.Context, userID int64) ([]model.ContactCard, error) {
	var cards []model.ContactCard
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&cards).Error
	return cards, err
}

func (r *contactRepo) GetOwned(ctx context.Context, userID, id int64) (*model.ContactCard, error) {
	var card model.ContactCard
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *contactRepo) DeleteOwned(ctx context.Context, userID, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&model.ContactCard{})
	return res.RowsAffected, res.Error
}
