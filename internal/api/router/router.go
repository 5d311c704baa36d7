package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/internal/api/handler"
	"github.com/gabrielsqw/badminton-club/internal/api/middleware"
	"github.com/gabrielsqw/badminton-club/internal/model"
	"github.com/gabrielsqw/badminton-club/pkg/database"
	"github.com/gabrielsqw/badminton-club/pkg/jwt"
)

// Deps 路由依赖；Blacklist / Limiter 为 nil 时相应功能降级放行
type Deps struct {
	Config    *config.Config
	Handler   *handler.Handler
	JWT       *jwt.Manager
	Blacklist middleware.TokenChecker
	Limiter   middleware.RateLimiter
	DB        *gorm.DB
	Logger    *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidators()

	cfg, h := d.Config, d.Handler
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(d.DB))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login",
				middleware.RateLimit(d.Limiter, cfg.Club.LoginRateLimit, cfg.Club.LoginRateWindow, d.Logger),
				h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(d.JWT, d.Blacklist, d.Logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			authorized.GET("/time-slots", h.Availability.ListTimeSlots)
			authorized.GET("/periods", h.Availability.GetPeriod)

			// 地点模块
			locations := authorized.Group("/locations")
			{
				locations.GET("", h.Location.ListLocations)
				locations.GET("/:id", h.Location.GetLocation)
				locations.POST("", middleware.RoleAuth(model.RoleAdmin), h.Location.CreateLocation)
				locations.PUT("/:id", middleware.RoleAuth(model.RoleAdmin), h.Location.UpdateLocation)
				locations.DELETE("/:id", middleware.RoleAuth(model.RoleAdmin), h.Location.DeleteLocation)
			}

			// 打球意向模块
			availability := authorized.Group("/availability")
			{
				availability.GET("/calendar", h.Availability.Calendar)
				availability.GET("/summary", h.Availability.Summary)
				availability.GET("/upcoming", h.Availability.Upcoming)

				me := availability.Group("/me")
				{
					me.GET("", h.Availability.ListMyEntries)
					me.GET("/calendar.ics", h.Availability.ExportICS)
					me.PUT("/days/:date", h.Availability.SaveDay)
					me.DELETE("/days/:date", h.Availability.DeleteDay)
					me.GET("/entries/:id", h.Availability.GetEntry)
					me.DELETE("/entries/:id", h.Availability.DeleteEntry)
				}
			}

			// 导出模块
			export := authorized.Group("/export")
			{
				export.GET("/period", h.Export.ExportPeriod)
			}
		}
	}

	return r
}

// healthCheck 数据库不可达时返回 503，便于负载均衡摘除实例
func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := database.Ping(ctx, db); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
