package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"marketplace_v1_202610/internal/api/dto"
	"marketplace_v1_202610/internal/apperr"
	"marketplace_v1_202610/pkg/logger"
)

// ==================== 统一响应 ====================

// httpStatus 错误类别对应的 HTTP 状态码，其余一律 200
func httpStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized, apperr.KindForbidden, apperr.KindShopNotFound:
		return http.StatusForbidden
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{Status: true, Data: data})
}

// okMsg Status 为一段描述
func okMsg(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, dto.Response{Status: msg})
}

// fail 业务错误按类别返回，内部错误只记日志不外泄
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.FromGin(c).Error("request failed", zap.Error(err))
		_ = c.Error(err)
	}
	c.JSON(httpStatus(kind), dto.Fail(string(kind), apperr.MessageOf(err)))
}

// badRequest 参数绑定失败
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusOK, dto.Fail(string(apperr.KindValidation), bindMessage(err)))
}

// bindMessage 把校验错误整理为 "参数错误: email(email), quantity(required)"
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, strings.ToLower(fe.Field())+"("+fe.Tag()+")")
		}
		return "参数错误: " + strings.Join(parts, ", ")
	}
	return "参数错误: 请求格式不正确"
}

// paramID 解析路径中的正整数 ID
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusOK, dto.Fail(string(apperr.KindValidation), "无效的ID"))
		return 0, false
	}
	return id, true
}
