package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gabrielsqw/badminton-club/config"
	"github.com/gabrielsqw/badminton-club/internal/api/handler"
	"github.com/gabrielsqw/badminton-club/internal/api/middleware"
	"github.com/gabrielsqw/badminton-club/internal/api/router"
	"github.com/gabrielsqw/badminton-club/internal/repository"
	"github.com/gabrielsqw/badminton-club/internal/service"
	"github.com/gabrielsqw/badminton-club/pkg/database"
	"github.com/gabrielsqw/badminton-club/pkg/jwt"
	applogger "github.com/gabrielsqw/badminton-club/pkg/logger"
	"github.com/gabrielsqw/badminton-club/pkg/redis"
)

func main() {
	// 0. 本地开发时从 .env 注入环境变量（文件不存在则忽略）
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("CLUB_CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		blacklist service.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，登出黑名单与登录限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist, limiter = rdb, rdb
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, blacklist, logger)
	h := handler.NewHandler(cfg, svc, logger)

	// 6.1 引导管理员
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.Auth.EnsureAdmin(bootCtx, cfg.Auth.BootstrapAdmin); err != nil {
		logger.Error("引导管理员初始化失败", zap.Error(err))
	}
	bootCancel()

	// 7. 初始化路由
	engine := router.Setup(router.Deps{
		Config:    cfg,
		Handler:   h,
		JWT:       jwtMgr,
		Blacklist: blacklist,
		Limiter:   limiter,
		DB:        db,
		Logger:    logger,
	})

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
