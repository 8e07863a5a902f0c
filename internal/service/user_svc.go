package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/internal/repository"
)

// ==================== UserService 用户服务 ====================

// UserService 注册、登录与个人信息
type UserService struct {
	userRepo repository.UserRepository
	notifier notify.Notifier
	log      *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, notifier notify.Notifier, log *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		notifier: notifier,
		log:      log.Named("user"),
	}
}

// ==================== 认证相关 ====================

// Register 注册，用户类型在注册时确定
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserInfo, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &model.User{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Username:  strings.TrimSpace(req.Username),
		Password:  string(hash),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Company:   req.Company,
		Position:  req.Position,
		Type:      req.Type,
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperr.FromDB(err, "邮箱或用户名已被注册")
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("type", user.Type))
	s.notifier.Notify(notify.Message{
		Event:     notify.EventWelcome,
		Recipient: user.Email,
		Subject:   "Регистрация",
		Body:      fmt.Sprintf("Здравствуйте, %s! Ваша учётная запись создана.", user.Username),
	})

	return toUserInfo(user), nil
}

// Login 登录，支持邮箱或用户名
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	login := strings.TrimSpace(req.Login)
	if strings.Contains(login, "@") {
		login = strings.ToLower(login)
	}

	user, err := s.userRepo.GetByLogin(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 检查状态
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	// 生成 Token
	token, expiresAt, err := middleware.GenerateAccessToken(user.ID, user.Username, user.Type)
	if err != nil {
		return nil, fmt.Errorf("生成 Token 失败: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        toUserInfo(user),
	}, nil
}

// ==================== 个人信息 ====================

// GetDetails 当前用户信息
func (s *UserService) GetDetails(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserInfo(user), nil
}

// UpdateDetails 修改个人信息，邮箱、用户名与类型不可修改
func (s *UserService) UpdateDetails(ctx context.Context, userID int64, req *dto.UpdateDetailsRequest) (*dto.UserInfo, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{})
	if req.FirstName != nil {
		fields["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["last_name"] = *req.LastName
	}
	if req.Company != nil {
		fields["company"] = *req.Company
	}
	if req.Position != nil {
		fields["position"] = *req.Position
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("密码加密失败: %w", err)
		}
		fields["password"] = string(hash)
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}
	return s.GetDetails(ctx, userID)
}

// activeUser 令牌有效但用户已删除或停用时视为未登录
func (s *UserService) activeUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("用户不存在")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return user, nil
}

func toUserInfo(u *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Company:   u.Company,
		Position:  u.Position,
		Type:      u.Type,
		CreatedAt: u.CreatedAt,
	}
}
