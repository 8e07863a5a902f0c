package controller

import (
	"github.com/gin-gonic/gin"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/service"
)

// ==================== PartnerController 经销商接口 ====================

// PartnerController 经销商店铺、价目表导入与订单履约
type PartnerController struct {
	catalogSvc *service.CatalogService
	ingestSvc  *service.IngestService
	orderSvc   *service.OrderService
}

func NewPartnerController(catalogSvc *service.CatalogService, ingestSvc *service.IngestService, orderSvc *service.OrderService) *PartnerController {
	return &PartnerController{
		catalogSvc: catalogSvc,
		ingestSvc:  ingestSvc,
		orderSvc:   orderSvc,
	}
}

// GetShop 当前经销商的店铺
// @Summary 我的店铺
// @Tags Partner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{Data=dto.PartnerShopInfo}
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/partner/shop [get]
func (c *PartnerController) GetShop(ctx *gin.Context) {
	info, err := c.catalogSvc.GetPartnerShop(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// UpsertShop 创建或修改店铺
// @Summary 创建或修改店铺
// @Description 一个经销商只有一个店铺；accepting_orders 控制是否接单
// @Tags Partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpsertShopRequest true "店铺信息"
// @Success 200 {object} dto.Response{Data=dto.PartnerShopInfo}
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/partner/shop [put]
func (c *PartnerController) UpsertShop(ctx *gin.Context) {
	var req dto.UpsertShopRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	info, err := c.catalogSvc.UpsertPartnerShop(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// ==================== 价目表导入 ====================

// Update 通过 URL 导入价目表
// @Summary 通过 URL 导入价目表
// @Description 拉取 YAML 价目表并全量替换店铺报价，整个导入在一个事务内完成
// @Tags Partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PartnerUpdateRequest true "价目表地址"
// @Success 200 {object} dto.Response{Data=dto.ImportResult}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/partner/update [post]
func (c *PartnerController) Update(ctx *gin.Context) {
	var req dto.PartnerUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	res, err := c.ingestSvc.ImportFromURL(ctx.Request.Context(), middleware.GetUserID(ctx), req.URL)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, res)
}

// FileUpdate 通过数据目录中的文件导入价目表
// @Summary 通过文件导入价目表
// @Tags Partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.PartnerFileUpdateRequest true "文件名"
// @Success 200 {object} dto.Response{Data=dto.ImportResult}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/partner/file_update [post]
func (c *PartnerController) FileUpdate(ctx *gin.Context) {
	var req dto.PartnerFileUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	res, err := c.ingestSvc.ImportFromFile(ctx.Request.Context(), middleware.GetUserID(ctx), req.Filename)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, res)
}

// ListImports 导入历史
// @Summary 导入历史
// @Tags Partner
// @Produce json
// @Security BearerAuth
// @Param limit query int false "条数" default(50)
// @Success 200 {object} dto.Response{Data=[]dto.FeedImportInfo}
// @Router /api/v1/partner/imports [get]
func (c *PartnerController) ListImports(ctx *gin.Context) {
	var req dto.ListImportsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	list, err := c.catalogSvc.ListImports(ctx.Request.Context(), middleware.GetUserID(ctx), req.Limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, list)
}

// ==================== 订单履约 ====================

// AdvanceOrder 推进订单状态
// @Summary 推进订单状态
// @Description paid → assembly → in_delivery → in_client，非终态均可取消
// @Tags Partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "订单ID"
// @Param request body dto.AdvanceStatusRequest true "目标状态"
// @Success 200 {object} dto.Response{Data=dto.OrderInfo}
// @Router /api/v1/partner/orders/{id}/status [post]
func (c *PartnerController) AdvanceOrder(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	var req dto.AdvanceStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	info, err := c.orderSvc.AdvanceStatus(ctx.Request.Context(), middleware.GetUserID(ctx), id, req.Status)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}
