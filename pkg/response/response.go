package response

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
)

// Response 统一响应结构
// code=0 表示成功；非 0 为业务错误码，前端据此展示对应提示
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// 错误码 50000 保留给未分类的服务端错误
const codeInternal = 50000

func write(c *gin.Context, status int, body Response) {
	c.JSON(status, body)
}

// ── 成功响应 ──

// OK 200
func OK(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, Response{Message: "success", Data: data})
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, Response{Message: "success", Data: data})
}

// Attachment 以下载文件形式返回二进制内容，文件名按 RFC 5987 编码
func Attachment(c *gin.Context, contentType, filename string, data []byte) {
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}

// ── 错误响应 ──

// Error 通用错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	write(c, httpStatus, Response{Code: code, Message: message})
}

// ErrorWithDetails 附带参数校验等细节
func ErrorWithDetails(c *gin.Context, httpStatus int, code int, message, details string) {
	write(c, httpStatus, Response{Code: code, Message: message, Details: details})
}

// FromError 业务错误按分类映射状态码，其余一律 500 且不外泄原始信息
func FromError(c *gin.Context, err error) {
	e, ok := pkgerrors.As(err)
	if !ok {
		Error(c, http.StatusInternalServerError, codeInternal, "服务器内部错误")
		return
	}
	Error(c, statusOf(e.Kind), e.Code, e.Message)
}

func statusOf(kind pkgerrors.Kind) int {
	switch kind {
	case pkgerrors.KindNotFound:
		return http.StatusNotFound
	case pkgerrors.KindPrecondition:
		return http.StatusUnprocessableEntity
	case pkgerrors.KindConflict:
		return http.StatusConflict
	case pkgerrors.KindForbidden:
		return http.StatusForbidden
	case pkgerrors.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}
