package response

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"controltower/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Envelope 统一响应信封
// 成功：{success:true, data:..., message:...}
// 失败：{success:false, error:"..."}
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Pagination 列表分页信息
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// PagedData 分页列表载荷
type PagedData struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// Success 200 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// SuccessMessage 带提示语的成功响应
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Paged 分页列表响应
func Paged(c *gin.Context, list interface{}, page, limit int, total int64) {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	Success(c, PagedData{
		Data: list,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// Fail 指定状态码的失败响应
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Error: message})
}

// TooManyRequests 429，带 Retry-After 头
func TooManyRequests(c *gin.Context, retryAfterSeconds int) {
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Envelope{
		Success: false,
		Error:   "too many requests",
	})
}

// HandleError 把业务错误映射为 HTTP 状态码
//
// 映射关系（见 internal/apperr）：
//
//	validation / conflict  -> 400
//	unauthorized           -> 401
//	insufficient funds     -> 402
//	forbidden              -> 403
//	not found              -> 404
//	rate limited           -> 429
//	upstream               -> 500（透传原始消息）
//	其它                    -> 500（只回通用消息，原始错误仅记日志）
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrConflict):
		Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthorized):
		Fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperr.ErrInsufficientFunds):
		Fail(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		Fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrRateLimited):
		Fail(c, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, apperr.ErrUpstream):
		Fail(c, http.StatusInternalServerError, err.Error())
	default:
		log.Printf("[Error] 未分类错误: %s %s err=%v", c.Request.Method, c.Request.URL.Path, err)
		Fail(c, http.StatusInternalServerError, "internal server error")
	}
}

// ParsePagination 解析 page / limit 查询参数
// page >= 1 默认 1；limit 1-100 默认 20，越界取边界值
func ParsePagination(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if err != nil || page < 1 {
		page = defaultPage
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit
}
