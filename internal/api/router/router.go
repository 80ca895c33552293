package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/config"
	"github.com/sarigr/uni-schedule-cloud/internal/api/handler"
	"github.com/sarigr/uni-schedule-cloud/internal/api/middleware"
	"github.com/sarigr/uni-schedule-cloud/pkg/jwt"
	"github.com/sarigr/uni-schedule-cloud/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 可为 nil：黑名单与限流降级为放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", health(rdb))

	// 注册与登录分别计数
	signUpLimit := middleware.RateLimit(rdb, "signup", cfg.Auth.SignInLimit, cfg.Auth.SignInWindow, logger)
	signInLimit := middleware.RateLimit(rdb, "signin", cfg.Auth.SignInLimit, cfg.Auth.SignInWindow, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/signup", signUpLimit, h.Auth.SignUp)
			auth.POST("/signin", signInLimit, h.Auth.SignIn)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/signout", h.Auth.SignOut)

			// 档案模块（管理员身份由 Service 层按档案判断）
			authorized.GET("/profile", h.Profile.GetProfile)
			authorized.GET("/profiles", h.Profile.ListProfiles)

			// 课表文档
			authorized.GET("/schedule", h.Schedule.GetSchedule)
			authorized.PUT("/schedule", h.Schedule.SaveSchedule)

			// 管理员
			authorized.POST("/admin/reset-pin", h.Admin.ResetPin)

			// 导出 / 导入（不读写数据库）
			export := authorized.Group("/export")
			{
				export.POST("/html", h.Export.ExportHTML)
				export.POST("/xlsx", h.Export.ExportXLSX)
				export.POST("/ics", h.Export.ExportICS)
			}
			authorized.POST("/import/html", h.Export.ImportHTML)
		}
	}

	return r
}

// health 服务状态；Redis 不可用不影响可用性，只在 redis 字段中体现
func health(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := "disabled"
		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			state = "ok"
			if err := rdb.Ping(ctx); err != nil {
				state = "down"
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "redis": state})
	}
}
