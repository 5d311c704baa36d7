package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CtxRequestID 请求追踪 ID 在 gin.Context 中的键
const CtxRequestID = "request_id"

// requestIDMaxLen 外部传入的 Request-ID 最大长度，超出则重新生成
const requestIDMaxLen = 64

// RequestID 请求追踪 ID 中间件
// 优先沿用 X-Request-ID 请求头，否则生成 UUID，并回写到响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > requestIDMaxLen {
			rid = uuid.NewString()
		}

		c.Set(CtxRequestID, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}
