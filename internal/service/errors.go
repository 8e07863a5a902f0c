package service

import "marketplace_v1_202610/internal/apperr"

// 业务错误
var (
	ErrInvalidCredentials = apperr.Unauthorized("用户名或密码错误")
	ErrUserDisabled       = apperr.Forbidden("账号已停用")
	ErrNotDistributor     = apperr.Forbidden("仅经销商可以操作")
	ErrShopNotFound       = apperr.New(apperr.KindShopNotFound, "店铺不存在或不属于当前用户")
	ErrBasketEmpty        = apperr.Validation("购物车为空")
	ErrOrderNotFound      = apperr.NotFound("订单不存在")
	ErrListingNotFound    = apperr.NotFound("报价不存在或已下架")
	ErrBadSignature       = apperr.Forbidden("签名校验失败")
)
