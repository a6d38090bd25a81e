package middleware

import (
	"net/http"

	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/redis"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

var store limiter.Store

// limiterStore 启用 Redis 时多节点共享计数，否则使用进程内存
func limiterStore() limiter.Store {
	if store != nil {
		return store
	}
	if redis.RedisEnabled {
		s, err := sredis.NewStoreWithOptions(redis.RDB, limiter.StoreOptions{
			Prefix:          "blackcnote:limiter",
			CleanUpInterval: config.RateLimitKeyExpirationDuration,
		})
		if err == nil {
			store = s
			return store
		}
		logger.SysError("failed to create redis limiter store, falling back to memory: " + err.Error())
	}
	store = memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "blackcnote:limiter",
		CleanUpInterval: config.RateLimitKeyExpirationDuration,
	})
	return store
}

func rateLimitFactory(key, mark string) gin.HandlerFunc {
	formatted := viper.GetString(key)
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		logger.FatalLog("invalid rate limit " + key + "=" + formatted + ": " + err.Error())
	}
	return mgin.NewMiddleware(
		limiter.New(limiterStore(), rate),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return mark + ":" + c.ClientIP()
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			abortWithMessage(c, http.StatusTooManyRequests, "请求过于频繁，请稍后再试")
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// 计数存储异常时放行
			logger.LogError(c.Request.Context(), "rate limiter error: "+err.Error())
			c.Next()
		}),
	)
}

func GlobalAPIRateLimit() gin.HandlerFunc {
	return rateLimitFactory("rate_limit.api", "GA")
}

func GlobalWebRateLimit() gin.HandlerFunc {
	return rateLimitFactory("rate_limit.web", "GW")
}

func CriticalRateLimit() gin.HandlerFunc {
	return rateLimitFactory("rate_limit.critical", "CT")
}

// CallbackRateLimit 网关回调按来源 IP 单独计数，不与用户请求共享额度
func CallbackRateLimit() gin.HandlerFunc {
	return rateLimitFactory("rate_limit.callback", "CB")
}
