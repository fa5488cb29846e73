package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/purelyricky/avashift-com-sub000/pkg/jwt"
	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

const (
	codeUnauthenticated = 10002
	codeForbidden       = 10003
)

// JWTAuth 校验 Bearer Access Token 并把身份写入上下文：
// user_id / role / token_id(jti) / token_exp
// rdb 为 nil 时不检查注销黑名单；Redis 故障时放行并告警
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, msg := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthenticated(c, msg)
			return
		}

		claims, err := jwtMgr.ParseToken(raw)
		if err != nil {
			abortUnauthenticated(c, "Token 无效或已过期")
			return
		}

		if rdb != nil && claims.ID != "" {
			revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				logger.Warn("黑名单检查失败，按未注销处理", zap.String("jti", claims.ID), zap.Error(err))
			case revoked:
				abortUnauthenticated(c, "Token 已注销")
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("token_id", claims.ID)
		if claims.ExpiresAt != nil {
			c.Set("token_exp", claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// RoleAuth 仅放行指定角色
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			abortUnauthenticated(c, "未认证")
			return
		}
		if !allowed[role] {
			response.Forbidden(c, codeForbidden, "无权限访问")
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearerToken 解析 Authorization 头；失败时返回空串和提示语
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "缺少认证头"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", "认证头格式无效"
	}
	return strings.TrimSpace(token), ""
}

func abortUnauthenticated(c *gin.Context, msg string) {
	response.Unauthorized(c, codeUnauthenticated, msg)
	c.Abort()
}
