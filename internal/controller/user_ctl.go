package controller

import (
	"github.com/gin-gonic/gin"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/middleware"
	"marketplace_v1_202610/internal/service"
)

// ==================== UserController 用户控制器 ====================

// UserController 用户控制器
type UserController struct {
	userService    *service.UserService
	contactService *service.ContactService
}

// NewUserController 创建用户控制器
func NewUserController(userService *service.UserService, contactService *service.ContactService) *UserController {
	return &UserController{userService: userService, contactService: contactService}
}

// ==================== 认证接口 ====================

// Register 注册
// @Summary 用户注册
// @Description 注册买家或经销商，类型注册后不可修改
// @Tags User
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册信息"
// @Success 200 {object} dto.Response{Data=dto.UserInfo}
// @Failure 200 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/user/register [post]
func (c *UserController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	info, err := c.userService.Register(ctx.Request.Context(), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// Login 用户登录
// @Summary 用户登录
// @Description 邮箱或用户名登录，返回 Bearer Token
// @Tags User
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.Response{Data=dto.LoginResponse}
// @Failure 403 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/user/login [post]
func (c *UserController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp, err := c.userService.Login(ctx.Request.Context(), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, resp)
}

// ==================== 个人信息 ====================

// GetDetails 当前用户信息
// @Summary 当前用户信息
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{Data=dto.UserInfo}
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/user/details [get]
func (c *UserController) GetDetails(ctx *gin.Context) {
	info, err := c.userService.GetDetails(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// UpdateDetails 修改个人信息
// @Summary 修改个人信息
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateDetailsRequest true "需要修改的字段"
// @Success 200 {object} dto.Response{Data=dto.UserInfo}
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/user/details [put]
func (c *UserController) UpdateDetails(ctx *gin.Context) {
	var req dto.UpdateDetailsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	info, err := c.userService.UpdateDetails(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// ==================== 联系人 ====================

// ListContacts 联系人列表
// @Summary 联系人列表
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Response{Data=[]dto.ContactInfo}
// @Router /api/v1/user/contacts [get]
func (c *UserController) ListContacts(ctx *gin.Context) {
	list, err := c.contactService.List(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, list)
}

// CreateContact 新增联系人
// @Summary 新增联系人
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ContactRequest true "联系人"
// @Success 200 {object} dto.Response{Data=dto.ContactInfo}
// @Router /api/v1/user/contacts [post]
func (c *UserController) CreateContact(ctx *gin.Context) {
	var req dto.ContactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	info, err := c.contactService.Create(ctx.Request.Context(), middleware.GetUserID(ctx), &req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ok(ctx, info)
}

// DeleteContact 删除联系人
// @Summary 删除联系人
// @Tags User
// @Produce json
// @Security BearerAuth
// @Param id path int true "联系人ID"
// @Success 200 {object} dto.Response
// @Router /api/v1/user/contacts/{id} [delete]
func (c *UserController) DeleteContact(ctx *gin.Context) {
	id, valid := paramID(ctx, "id")
	if !valid {
		return
	}
	if err := c.contactService.Delete(ctx.Request.Context(), middleware.GetUserID(ctx), id); err != nil {
		fail(ctx, err)
		return
	}
	okMsg(ctx, "联系人已删除")
}
