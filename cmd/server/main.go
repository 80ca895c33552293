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

	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/api/handler"
	"github.com/sarigr/uni-schedule-cloud/internal/api/router"
	"github.com/sarigr/uni-schedule-cloud/internal/repository"
	"github.com/sarigr/uni-schedule-cloud/internal/service"
	"github.com/sarigr/uni-schedule-cloud/pkg/database"
	"github.com/sarigr/uni-schedule-cloud/pkg/jwt"
	applogger "github.com/sarigr/uni-schedule-cloud/pkg/logger"
	"github.com/sarigr/uni-schedule-cloud/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. 加载配置（UNISCHED_CONFIG 可指定配置文件路径）
	cfg, err := config.Load(os.Getenv("UNISCHED_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("服务器已关闭")
	_ = logger.Sync()
}

// run 装配依赖并运行 HTTP 服务，ctx 取消后优雅关闭
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("master_usernames", cfg.Auth.MasterUsernames),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 4. 连接 Redis（可选：未配置或连接失败时降级运行，Token 黑名单与登录限流失效）
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 不可用，降级运行", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// 5. 依赖注入: Repository → Service → Handler → Router
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := service.NewService(cfg, repository.NewRepository(db), jwtMgr, rdb, logger)
	engine := router.Setup(cfg, handler.NewHandler(svc), jwtMgr, rdb, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second, // XLSX 导出可能较慢
		IdleTimeout:       60 * time.Second,
	}

	// 6. 启动 HTTP 服务器
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 7. 等待退出信号或服务异常
	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP 服务器异常: %w", err)
	case <-ctx.Done():
		logger.Info("收到关闭信号，开始优雅关闭...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
