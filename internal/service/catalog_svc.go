package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/repository"
)

// ==================== CatalogService 目录服务 ====================

// CatalogService 公开目录查询与经销商店铺维护
type CatalogService struct {
	userRepo    repository.UserRepository
	shopRepo    repository.ShopRepository
	catalogRepo repository.CatalogRepository
	importRepo  repository.FeedImportRepository
	log         *zap.Logger
}

func NewCatalogService(
	userRepo repository.UserRepository,
	shopRepo repository.ShopRepository,
	catalogRepo repository.CatalogRepository,
	importRepo repository.FeedImportRepository,
	log *zap.Logger,
) *CatalogService {
	return &CatalogService{
		userRepo:    userRepo,
		shopRepo:    shopRepo,
		catalogRepo: catalogRepo,
		importRepo:  importRepo,
		log:         log.Named("catalog"),
	}
}

// ==================== 公开查询 ====================

func (s *CatalogService) ListCategories(ctx context.Context) ([]dto.CategoryInfo, error) {
	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]dto.CategoryInfo, 0, len(categories))
	for _, c := range categories {
		list = append(list, dto.CategoryInfo{ID: c.ID, Name: c.Name})
	}
	return list, nil
}

// ListShops 仅返回接单中的店铺
func (s *CatalogService) ListShops(ctx context.Context) ([]dto.ShopInfo, error) {
	shops, err := s.shopRepo.ListAccepting(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]dto.ShopInfo, 0, len(shops))
	for _, shop := range shops {
		list = append(list, dto.ShopInfo{ID: shop.ID, Name: shop.Name, AcceptingOrders: shop.AcceptingOrders})
	}
	return list, nil
}

// ListProducts 按店铺、分类筛选报价，停止接单的店铺不展示
func (s *CatalogService) ListProducts(ctx context.Context, req *dto.ListProductsRequest) ([]dto.ListingInfo, error) {
	listings, err := s.catalogRepo.ListListings(ctx, repository.ListingFilter{
		ShopID:        req.ShopID,
		CategoryID:    req.CategoryID,
		OnlyAccepting: true,
	})
	if err != nil {
		return nil, err
	}

	list := make([]dto.ListingInfo, 0, len(listings))
	for i := range listings {
		list = append(list, toListingInfo(&listings[i]))
	}
	return list, nil
}

func toListingInfo(l *model.ProductListing) dto.ListingInfo {
	info := dto.ListingInfo{
		ID:         l.ID,
		ProductID:  l.ProductID,
		ShopID:     l.ShopID,
		BPNumber:   l.BPNumber,
		Model:      l.Name,
		Quantity:   l.Quantity,
		Price:      l.Price,
		PriceRRC:   l.PriceRRC,
		Parameters: make(map[string]string, len(l.Parameters)),
	}
	if l.Product != nil {
		info.Product = l.Product.Name
		info.CategoryID = l.Product.CategoryID
		if l.Product.Category != nil {
			info.Category = l.Product.Category.Name
		}
	}
	if l.Shop != nil {
		info.Shop = l.Shop.Name
	}
	for _, p := range l.Parameters {
		if p.Parameter != nil {
			info.Parameters[p.Parameter.Name] = p.Value
		}
	}
	return info
}

// ==================== 经销商店铺 ====================

// GetPartnerShop 当前经销商的店铺
func (s *CatalogService) GetPartnerShop(ctx context.Context, userID int64) (*dto.PartnerShopInfo, error) {
	if _, err := requireDistributor(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}

	shop, err := s.shopRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.toPartnerShopInfo(ctx, shop)
}

// UpsertPartnerShop 创建或修改店铺，一个经销商只有一个店铺
func (s *CatalogService) UpsertPartnerShop(ctx context.Context, userID int64, req *dto.UpsertShopRequest) (*dto.PartnerShopInfo, error) {
	if _, err := requireDistributor(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("店铺名称不能为空")
	}

	shop, err := s.shopRepo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		shop = &model.Shop{
			Name:            name,
			URL:             req.URL,
			Filename:        req.Filename,
			UserID:          &userID,
			AcceptingOrders: req.AcceptingOrders == nil || *req.AcceptingOrders,
		}
		if err := s.shopRepo.Create(ctx, shop); err != nil {
			return nil, apperr.FromDB(err, "店铺已存在")
		}
		s.log.Info("shop created", zap.Int64("shop_id", shop.ID), zap.Int64("user_id", userID))
	case err != nil:
		return nil, err
	default:
		fields := map[string]interface{}{
			"name":     name,
			"url":      req.URL,
			"filename": req.Filename,
		}
		if req.AcceptingOrders != nil {
			fields["accepting_orders"] = *req.AcceptingOrders
		}
		if err := s.shopRepo.UpdateFields(ctx, shop.ID, fields); err != nil {
			return nil, err
		}
		if shop, err = s.shopRepo.GetByID(ctx, shop.ID); err != nil {
			return nil, err
		}
	}

	return s.toPartnerShopInfo(ctx, shop)
}

// ListImports 当前经销商店铺的导入历史，新的在前
func (s *CatalogService) ListImports(ctx context.Context, userID int64, limit int) ([]dto.FeedImportInfo, error) {
	if _, err := requireDistributor(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	shop, err := s.shopRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, err
	}

	records, err := s.importRepo.ListByShop(ctx, shop.ID, limit)
	if err != nil {
		return nil, err
	}
	list := make([]dto.FeedImportInfo, 0, len(records))
	for _, r := range records {
		list = append(list, dto.FeedImportInfo{
			BatchID:      r.BatchID,
			Source:       r.Source,
			Location:     r.Location,
			Status:       r.Status,
			Categories:   r.Categories,
			Listings:     r.Listings,
			Parameters:   r.Parameters,
			ErrorCode:    r.ErrorCode,
			ErrorMessage: r.ErrorMessage,
			DurationMs:   r.DurationMs,
			CreatedAt:    r.CreatedAt,
		})
	}
	return list, nil
}

func (s *CatalogService) toPartnerShopInfo(ctx context.Context, shop *model.Shop) (*dto.PartnerShopInfo, error) {
	count, err := s.catalogRepo.CountListingsByShop(ctx, shop.ID)
	if err != nil {
		return nil, err
	}
	return &dto.PartnerShopInfo{
		ID:              shop.ID,
		Name:            shop.Name,
		URL:             shop.URL,
		Filename:        shop.Filename,
		AcceptingOrders: shop.AcceptingOrders,
		LastImportAt:    shop.LastImportAt,
		Listings:        count,
	}, nil
}

// requireDistributor 角色以数据库为准，令牌中的角色仅用于路由预检
func requireDistributor(ctx context.Context, users repository.UserRepository, userID int64) (*model.User, error) {
	user, err := users.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Unauthorized("用户不存在")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if !user.IsDistributor() {
		return nil, ErrNotDistributor
	}
	return user, nil
}
