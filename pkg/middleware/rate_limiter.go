package middleware

import (
	"net/http"
	"strconv"

	"SOS911/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// RateLimiterConfig 触发接口的限流配置
//
// Rate 形如 "10-M"（每分钟10次）；Identifier 取 "user" 时按
// X-User-ID 请求头区分，否则按客户端IP。
// 报警触发必须限流：UI 层约定单次用户动作只发一次提交，
// 这里兜底防止异常重复触发刷爆后端。
type RateLimiterConfig struct {
	Rate       string   `json:"rate"`
	Identifier string   `json:"identifier"` // ip|user
	SkipPaths  []string `json:"skip_paths"`
	DenyStatus int      `json:"deny_status"` // 默认 429
}

// NewRateLimiter 创建限流中间件，内存 store
func NewRateLimiter(cfg RateLimiterConfig) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		logger.Warn("invalid rate format, rate limiting disabled", zap.String("rate", cfg.Rate), zap.Error(err))
		return func(c *gin.Context) { c.Next() }
	}

	instance := limiter.New(memory.NewStore(), rate)
	denyStatus := cfg.DenyStatus
	if denyStatus == 0 {
		denyStatus = http.StatusTooManyRequests
	}

	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		key := c.ClientIP()
		if cfg.Identifier == "user" {
			if uid := c.GetHeader("X-User-ID"); uid != "" {
				key = "user:" + uid
			}
		}

		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// 限流器自身故障放行，报警链路可用性优先
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		if lctx.Reached {
			c.AbortWithStatusJSON(denyStatus, gin.H{"code": denyStatus, "message": "too many requests"})
			return
		}
		c.Next()
	}
}
