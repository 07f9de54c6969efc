package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 0, Message: message, Data: data})
}

// Fail 失败响应，HTTP 状态仍为 200，业务码非 0
func Fail(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Body{Code: 1, Message: message, Data: data})
}

// FailWithStatus 带 HTTP 状态码和业务码的失败响应
func FailWithStatus(c *gin.Context, status, code int, message string) {
	c.JSON(status, Body{Code: code, Message: message})
}
