package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

const codeBodyTooLarge = 10005

// BodyLimit 限制请求体大小
// 声明了 Content-Length 的请求直接拒绝；分块上传在绑定读取时由 MaxBytesReader 截断
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			abortTooLarge(c)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if !c.Writer.Written() && hasTooLargeError(c.Errors) {
			response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
		}
	}
}

func hasTooLargeError(errs []*gin.Error) bool {
	for _, e := range errs {
		var tooLarge *http.MaxBytesError
		if errors.As(e.Err, &tooLarge) {
			return true
		}
	}
	return false
}

func abortTooLarge(c *gin.Context) {
	response.Error(c, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "请求体过大")
	c.Abort()
}
