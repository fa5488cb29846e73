package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/pkg/redis"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

const codeRateLimited = 10006

// RateLimit 按路由的固定窗口限流
// 挂在 JWTAuth 之后按用户计数，挂在之前（如登录）按 IP 计数
// rdb 为 nil 或 Redis 出错时放行
func RateLimit(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	limitHeader := strconv.Itoa(limit)

	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := "user:" + c.GetString("user_id")
		if subject == "user:" {
			subject = "ip:" + c.ClientIP()
		}

		res, err := rdb.CheckRateLimit(c.Request.Context(), c.FullPath()+":"+subject, limit, window)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.ResetIn.Seconds()))))
			response.Error(c, http.StatusTooManyRequests, codeRateLimited, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
