package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/csacanam/fanio-sub001/internal/model"
	"github.com/gin-gonic/gin"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// parsePagination 解析分页查询参数，非法值回退到默认，页大小至少为1避免除零
func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return page, pageSize
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// BusinessErrorResponse 按业务错误类型映射HTTP状态码
func BusinessErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrCampaignNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidParameters),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInsufficientDeposit),
		errors.Is(err, model.ErrInsufficientBalance):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrCampaignNotActive),
		errors.Is(err, model.ErrNotExpired),
		errors.Is(err, model.ErrAlreadyClosed),
		errors.Is(err, model.ErrAlreadyFinalized):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
