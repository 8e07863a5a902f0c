package controller

import (
	"github.com/gin-gonic/gin"

	"marketplace_v1_202610/internal/service"
)

// HeaderSignature 支付网关回调签名，hex(HMAC-SHA256(secret, body))
const HeaderSignature = "X-Signature"

// PaymentController 支付网关回调
type PaymentController struct {
	orderSvc *service.OrderService
}

func NewPaymentController(orderSvc *service.OrderService) *PaymentController {
	return &PaymentController{orderSvc: orderSvc}
}

// Callback 支付成功回调
// @Summary 支付回调
// @Description 签名校验通过后把订单置为 paid，重复回调幂等
// @Tags Payment
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 签名"
// @Param request body dto.PaymentCallbackRequest true "订单"
// @Success 200 {object} dto.Response{Data=dto.OrderSummary}
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/payments/callback [post]
func (c *PaymentController) Callback(ctx *gin.Context) {
	// 签名针对原始报文，不能先绑定再序列化
	body, err := ctx.GetRawData()
	if err != nil {
		badRequest(ctx, err)
		return
	}

	summary, err := c.orderSvc.MarkPaid(ctx.Request.Context(), body, ctx.GetHeader(HeaderSignature))
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, summary)
}
