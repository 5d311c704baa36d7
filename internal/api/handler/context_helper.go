package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/gabrielsqw/badminton-club/internal/api/middleware"
	"github.com/gabrielsqw/badminton-club/internal/service"
	"github.com/gabrielsqw/badminton-club/pkg/response"
)

// CurrentIdentity 从 Gin 上下文中提取 JWT 中间件注入的身份
func CurrentIdentity(c *gin.Context) mo.Option[service.Identity] {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		return mo.None[service.Identity]()
	}
	return mo.Some(service.Identity{
		UserID:   userID,
		Username: c.GetString(middleware.CtxUsername),
		Role:     c.GetString(middleware.CtxRole),
	})
}

// MustGetIdentity 提取身份，缺失时写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetIdentity(c *gin.Context) (service.Identity, bool) {
	id, ok := CurrentIdentity(c).Get()
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return service.Identity{}, false
	}
	return id, true
}

// currentToken 当前 Access Token 的 jti 与过期时间（登出使用）
func currentToken(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp := c.GetTime(middleware.CtxTokenExp)
	return jti, exp
}

// pathID 读取路径参数 :id，非 UUID 时写入 400 响应
func pathID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		response.BadRequest(c, codeBadRequest, "ID 格式无效")
		return "", false
	}
	return id, true
}
