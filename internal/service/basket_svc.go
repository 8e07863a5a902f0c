package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/repository"
	"marketplace_v1_202610/pkg/metrics"
)

// ==================== BasketService 购物车 ====================

// BasketService 购物车即用户唯一的 in_process 订单
type BasketService struct {
	orderRepo   repository.OrderRepository
	catalogRepo repository.CatalogRepository
	shopRepo    repository.ShopRepository
	metrics     *metrics.Registry
	log         *zap.Logger
}

func NewBasketService(
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	shopRepo repository.ShopRepository,
	reg *metrics.Registry,
	log *zap.Logger,
) *BasketService {
	return &BasketService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		shopRepo:    shopRepo,
		metrics:     reg,
		log:         log.Named("basket"),
	}
}

// GetOrOpenBasket 获取购物车，不存在时原子创建
func (s *BasketService) GetOrOpenBasket(ctx context.Context, userID int64) (*model.Order, error) {
	basket, err := s.orderRepo.OpenBasket(ctx, userID)
	if err != nil {
		return nil, err
	}
	return basket, nil
}

// GetBasket 购物车详情及金额
func (s *BasketService) GetBasket(ctx context.Context, userID int64) (*dto.OrderInfo, error) {
	basket, err := s.GetOrOpenBasket(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, basket.ID)
}

// SetLineItem 设置某报价在购物车中的数量
// 数量为 0 时移除该行；shop_id 必须与报价所属店铺一致
func (s *BasketService) SetLineItem(ctx context.Context, userID int64, req *dto.SetItemRequest) (*dto.OrderInfo, error) {
	quantity := 0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 0 {
		return nil, apperr.Validation("数量不能为负")
	}

	listing, err := s.catalogRepo.GetListing(ctx, req.ListingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	if listing.ShopID != req.ShopID {
		return nil, apperr.Validation("报价不属于该店铺")
	}

	if quantity > 0 {
		shop, err := s.shopRepo.GetByID(ctx, listing.ShopID)
		if err != nil {
			return nil, apperr.FromDB(err, "店铺不存在")
		}
		if !shop.AcceptingOrders {
			return nil, apperr.Validation("店铺暂停接单")
		}
	}

	basket, err := s.GetOrOpenBasket(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.orderRepo.Transaction(ctx, func(txRepo repository.OrderRepository) error {
		if err := lockOpenBasket(ctx, txRepo, basket.ID); err != nil {
			return err
		}
		if quantity == 0 {
			_, err := txRepo.DeleteItemByListing(ctx, basket.ID, listing.ID)
			return err
		}
		// 店铺取自报价本身，不信任请求
		_, err := txRepo.UpsertItem(ctx, &model.OrderItem{
			OrderID:   basket.ID,
			ListingID: listing.ID,
			ShopID:    listing.ShopID,
			Quantity:  quantity,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		s.metrics.IncBasketOp("remove")
	} else {
		s.metrics.IncBasketOp("set")
	}
	return s.view(ctx, basket.ID)
}

// RemoveLineItem 删除购物车中的一行，只能删除自己购物车里的
func (s *BasketService) RemoveLineItem(ctx context.Context, userID, itemID int64) (*dto.OrderInfo, error) {
	basket, err := s.orderRepo.GetBasket(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("订单行不存在")
	}
	if err != nil {
		return nil, err
	}

	err = s.orderRepo.Transaction(ctx, func(txRepo repository.OrderRepository) error {
		if err := lockOpenBasket(ctx, txRepo, basket.ID); err != nil {
			return err
		}
		rows, err := txRepo.DeleteItem(ctx, basket.ID, itemID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.NotFound("订单行不存在")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncBasketOp("remove")
	return s.view(ctx, basket.ID)
}

// ComputeTotal Σ 数量 × 单价，空订单为 0
func (s *BasketService) ComputeTotal(ctx context.Context, orderID int64) (int64, error) {
	return s.orderRepo.ComputeTotal(ctx, orderID)
}

func (s *BasketService) view(ctx context.Context, orderID int64) (*dto.OrderInfo, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	total, err := s.orderRepo.ComputeTotal(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderInfo(order, total), nil
}

// lockOpenBasket 锁定购物车并确认仍处于 in_process
func lockOpenBasket(ctx context.Context, txRepo repository.OrderRepository, id int64) error {
	order, err := txRepo.LockByID(ctx, id)
	if err != nil {
		return apperr.FromDB(err, "购物车不存在")
	}
	if order.Status != model.OrderStatusInProcess {
		return apperr.Conflict("订单已提交，无法修改")
	}
	return nil
}

// ==================== 视图转换 ====================

func toOrderInfo(order *model.Order, total int64) *dto.OrderInfo {
	info := &dto.OrderInfo{
		ID:        order.ID,
		Status:    order.Status,
		ContactID: order.ContactID,
		Items:     make([]dto.OrderItemInfo, 0, len(order.Items)),
		Total:     total,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	if order.Contact != nil {
		contact := toContactInfo(order.Contact)
		info.Contact = &contact
	}

	for _, item := range order.Items {
		row := dto.OrderItemInfo{
			ID:        item.ID,
			ListingID: item.ListingID,
			ShopID:    item.ShopID,
			Quantity:  item.Quantity,
		}
		if l := item.Listing; l != nil {
			row.Model = l.Name
			row.Price = l.Price
			row.Sum = int64(item.Quantity) * l.Price
			row.Available = !l.DeletedAt.Valid
			if l.Product != nil {
				row.Product = l.Product.Name
			}
		}
		info.Items = append(info.Items, row)
	}
	return info
}
