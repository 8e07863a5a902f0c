package controller

import (
	"github.com/gin-gonic/gin"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/service"
)

// CatalogController 公开目录，无需登录
type CatalogController struct {
	catalogSvc *service.CatalogService
}

func NewCatalogController(catalogSvc *service.CatalogService) *CatalogController {
	return &CatalogController{catalogSvc: catalogSvc}
}

// ListCategories 分类列表
// @Summary 分类列表
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response{Data=[]dto.CategoryInfo}
// @Router /api/v1/categories [get]
func (c *CatalogController) ListCategories(ctx *gin.Context) {
	list, err := c.catalogSvc.ListCategories(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, list)
}

// ListShops 接单中的店铺
// @Summary 店铺列表
// @Tags Catalog
// @Produce json
// @Success 200 {object} dto.Response{Data=[]dto.ShopInfo}
// @Router /api/v1/shops [get]
func (c *CatalogController) ListShops(ctx *gin.Context) {
	list, err := c.catalogSvc.ListShops(ctx.Request.Context())
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, list)
}

// ListProducts 报价列表
// @Summary 报价列表
// @Description 按店铺、分类筛选，仅展示接单中店铺的报价
// @Tags Catalog
// @Produce json
// @Param shop_id query int false "店铺ID"
// @Param category_id query int false "分类ID"
// @Success 200 {object} dto.Response{Data=[]dto.ListingInfo}
// @Router /api/v1/products [get]
func (c *CatalogController) ListProducts(ctx *gin.Context) {
	var req dto.ListProductsRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	list, err := c.catalogSvc.ListProducts(ctx.Request.Context(), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, list)
}
