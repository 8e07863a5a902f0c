package controller

import (
	"github.com/gin-gonic/gin"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/service"
)

// OrderController 购物车与订单
type OrderController struct {
	basketSvc *service.BasketService
	orderSvc  *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(basketSvc *service.BasketService, orderSvc *service.OrderService) *OrderController {
	return &OrderController{basketSvc: basketSvc, orderSvc: orderSvc}
}

// ==================== 购物车 ====================

// GetBasket 购物车
// @Summary 购物车
// @Description 不存在时自动创建
// @Tags Basket
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/basket [get]
func (c *OrderController) GetBasket(ctx *gin.Context) {
	info, err := c.basketSvc.GetBasket(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// SetItem 设置购物车中某报价的数量
// @Summary 设置订单行
// @Description quantity 为 0 时移除该报价
// @Tags Basket
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SetItemRequest true "订单行"
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/basket/items [post]
func (c *OrderController) SetItem(ctx *gin.Context) {
	var req dto.SetItemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	info, err := c.basketSvc.SetLineItem(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// RemoveItem 删除订单行
// @Summary 删除订单行
// @Tags Basket
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单行ID"
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/basket/items/{id} [delete]
func (c *OrderController) RemoveItem(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	info, err := c.basketSvc.RemoveLineItem(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// Confirm 提交购物车
// @Summary 提交购物车
// @Tags Basket
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ConfirmRequest false "收货联系人"
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/basket/confirm [post]
func (c *OrderController) Confirm(ctx *gin.Context) {
	var req dto.ConfirmRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			badRequest(ctx, err)
			return
		}
	}

	info, err := c.orderSvc.ConfirmBasket(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// ==================== 订单 ====================

// List 历史订单
// @Summary 历史订单
// @Description 不含购物车，新的在前
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{Data=[]dto.OrderSummary}
// @Router /api/v1/orders [get]
func (c *OrderController) List(ctx *gin.Context) {
	list, err := c.orderSvc.ListOrders(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, list)
}

// Get 订单详情
// @Summary 订单详情
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/orders/{id} [get]
func (c *OrderController) Get(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	info, err := c.orderSvc.GetOrder(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// Cancel 取消订单
// @Summary 取消订单
// @Tags Order
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/orders/{id}/cancel [post]
func (c *OrderController) Cancel(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}

	info, err := c.orderSvc.Cancel(ctx.Request.Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}
