package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/internal/model"
	"marketplace_v1_202610/internal/notify"
	"marketplace_v1_202610/internal/repository"
	"marketplace_v1_202610/pkg/metrics"
)

// ==================== OrderService 订单 ====================

// OrderService 订单查询与状态流转
type OrderService struct {
	orderRepo      repository.OrderRepository
	contactRepo    repository.ContactRepository
	userRepo       repository.UserRepository
	shopRepo       repository.ShopRepository
	notifier       notify.Notifier
	metrics        *metrics.Registry
	log            *zap.Logger
	callbackSecret []byte
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	contactRepo repository.ContactRepository,
	userRepo repository.UserRepository,
	shopRepo repository.ShopRepository,
	notifier notify.Notifier,
	reg *metrics.Registry,
	log *zap.Logger,
	callbackSecret string,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		contactRepo:    contactRepo,
		userRepo:       userRepo,
		shopRepo:       shopRepo,
		notifier:       notifier,
		metrics:        reg,
		log:            log.Named("order"),
		callbackSecret: []byte(callbackSecret),
	}
}

// ==================== 查询 ====================

// ListOrders 历史订单（不含购物车），新的在前
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]dto.OrderSummary, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	totals, err := s.orderRepo.TotalsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	list := make([]dto.OrderSummary, 0, len(orders))
	for _, o := range orders {
		list = append(list, dto.OrderSummary{
			ID:        o.ID,
			Status:    o.Status,
			Total:     totals[o.ID], // 没有订单行时为 0
			CreatedAt: o.CreatedAt,
		})
	}
	return list, nil
}

// GetOrder 订单详情，只能查看自己的订单
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*dto.OrderInfo, error) {
	order, err := s.orderRepo.GetForUser(ctx, orderID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.view(ctx, order)
}

func (s *OrderService) view(ctx context.Context, order *model.Order) (*dto.OrderInfo, error) {
	total, err := s.orderRepo.ComputeTotal(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return toOrderInfo(order, total), nil
}

// ==================== 状态流转 ====================

// ConfirmBasket 提交购物车：in_process → confirmed
func (s *OrderService) ConfirmBasket(ctx context.Context, userID int64, req *dto.ConfirmRequest) (*dto.OrderInfo, error) {
	fields := map[string]interface{}{}
	if req != nil && req.ContactID != nil {
		if _, err := s.contactRepo.GetOwned(ctx, userID, *req.ContactID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Validation("联系人不存在")
			}
			return nil, err
		}
		fields["contact_id"] = *req.ContactID
	}

	var orderID int64
	err := s.orderRepo.Transaction(ctx, func(txRepo repository.OrderRepository) error {
		basket, err := txRepo.GetBasket(ctx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBasketEmpty
		}
		if err != nil {
			return err
		}
		if err := lockOpenBasket(ctx, txRepo, basket.ID); err != nil {
			return err
		}

		order, err := txRepo.GetByID(ctx, basket.ID)
		if err != nil {
			return err
		}
		if len(order.Items) == 0 {
			return ErrBasketEmpty
		}
		for _, item := range order.Items {
			if item.Listing == nil || item.Listing.DeletedAt.Valid {
				return apperr.Validationf("订单行 %d 的报价已下架，请先移除", item.ID)
			}
		}

		rows, err := txRepo.TransitionStatus(ctx, basket.ID, model.OrderStatusInProcess, model.OrderStatusConfirmed, fields)
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.Conflict("订单状态已变化")
		}
		orderID = basket.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("basket confirmed", zap.Int64("order_id", orderID), zap.Int64("user_id", userID))
	s.metrics.IncTransition(model.OrderStatusConfirmed)
	s.notifyBuyer(ctx, userID, notify.EventOrderConfirmed,
		fmt.Sprintf("Заказ #%d подтверждён", orderID),
		"Ваш заказ принят в обработку.")

	return s.GetOrder(ctx, userID, orderID)
}

// Cancel 买家取消自己的订单
func (s *OrderService) Cancel(ctx context.Context, userID, orderID int64) (*dto.OrderInfo, error) {
	order, err := s.orderRepo.GetForUser(ctx, orderID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, order, model.OrderStatusCanceled); err != nil {
		return nil, err
	}
	s.notifyBuyer(ctx, userID, notify.EventOrderStatus,
		fmt.Sprintf("Заказ #%d отменён", orderID), "Заказ отменён по вашему запросу.")
	return s.GetOrder(ctx, userID, orderID)
}

// AdvanceStatus 经销商推进履约状态，只能处理包含自己店铺报价的订单
func (s *OrderService) AdvanceStatus(ctx context.Context, userID, orderID int64, to string) (*dto.OrderInfo, error) {
	if _, err := requireDistributor(ctx, s.userRepo, userID); err != nil {
		return nil, err
	}
	switch to {
	case model.OrderStatusAssembly, model.OrderStatusInDelivery, model.OrderStatusInClient, model.OrderStatusCanceled:
	default:
		return nil, apperr.Validationf("不支持的目标状态: %s", to)
	}

	shop, err := s.shopRepo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShopNotFound
	}
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	// 购物车和其他店铺的订单对经销商不可见
	if order.Status == model.OrderStatusInProcess {
		return nil, ErrOrderNotFound
	}
	ok, err := s.orderRepo.HasShopItems(ctx, order.ID, shop.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}

	if err := s.transition(ctx, order, to); err != nil {
		return nil, err
	}
	s.log.Info("order status advanced",
		zap.Int64("order_id", order.ID),
		zap.Int64("shop_id", shop.ID),
		zap.String("from", order.Status),
		zap.String("to", to))
	s.notifyBuyer(ctx, order.UserID, notify.EventOrderStatus,
		fmt.Sprintf("Заказ #%d: статус %s", order.ID, to), "Статус вашего заказа изменён.")

	order.Status = to
	return s.view(ctx, order)
}

// ==================== 支付回调 ====================

// SignPayload 回调签名：hex(HMAC-SHA256(secret, body))
func SignPayload(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 常量时间比较
func (s *OrderService) VerifySignature(body []byte, signature string) error {
	if len(s.callbackSecret) == 0 {
		return apperr.Forbidden("支付回调未启用")
	}
	sig, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(sig) == 0 {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, s.callbackSecret)
	mac.Write(body)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// MarkPaid 处理支付网关回调：confirmed → paid
// 回调可能重复投递，已支付的订单直接返回成功
func (s *OrderService) MarkPaid(ctx context.Context, body []byte, signature string) (*dto.OrderSummary, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		s.log.Warn("payment callback rejected", zap.Error(err))
		return nil, err
	}

	var req dto.PaymentCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil || req.OrderID <= 0 {
		return nil, apperr.Validation("回调参数错误")
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if order.Status != model.OrderStatusPaid {
		if err := s.transition(ctx, order, model.OrderStatusPaid); err != nil {
			return nil, err
		}
		s.log.Info("order paid", zap.Int64("order_id", order.ID))
		s.notifyBuyer(ctx, order.UserID, notify.EventOrderPaid,
			fmt.Sprintf("Заказ #%d оплачен", order.ID), "Оплата получена.")
	}

	total, err := s.orderRepo.ComputeTotal(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &dto.OrderSummary{ID: order.ID, Status: model.OrderStatusPaid, Total: total, CreatedAt: order.CreatedAt}, nil
}

// ==================== 内部方法 ====================

// transition 校验状态表后做条件更新，并发修改时返回 conflict
func (s *OrderService) transition(ctx context.Context, order *model.Order, to string) error {
	if !model.CanTransition(order.Status, to) {
		return apperr.Conflict(fmt.Sprintf("订单状态 %s 不能变更为 %s", order.Status, to))
	}
	rows, err := s.orderRepo.TransitionStatus(ctx, order.ID, order.Status, to, nil)
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.Conflict("订单状态已变化，请刷新后重试")
	}
	s.metrics.IncTransition(to)
	return nil
}

// notifyBuyer 通知失败不影响主流程
func (s *OrderService) notifyBuyer(ctx context.Context, userID int64, event, subject, body string) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.log.Warn("notify buyer: load user failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.notifier.Notify(notify.Message{
		Event:     event,
		Recipient: user.Email,
		Subject:   subject,
		Body:      body,
	})
}
