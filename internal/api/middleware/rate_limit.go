package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sarigr/uni-schedule-cloud/pkg/redis"
	"github.com/sarigr/uni-schedule-cloud/pkg/response"
)

// RateLimit 基于 Redis 固定窗口的速率限制中间件。
// scope 区分计数桶（如 signin / signup），同一 scope 内按客户端 IP 计数；
// limit <= 0 或 rdb 为 nil 时不限流。Redis 出错时降级放行，与 JWTAuth 策略一致。
func RateLimit(rdb *redis.Client, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", scope, c.ClientIP())
		allowed, err := rdb.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			logger.Info("触发限流", zap.String("scope", scope), zap.String("ip", c.ClientIP()))
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
