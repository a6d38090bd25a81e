package middleware

import (
	"strings"
	"time"

	"blackcnote/common/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetUpLogger 记录每个请求的访问日志，回调请求的查询串可能带签名，按敏感字段脱敏
func SetUpLogger(server *gin.Engine) {
	server.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/favicon.ico" || strings.HasPrefix(path, "/swagger/") {
			return
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}
		if query := c.Request.URL.Query(); len(query) > 0 {
			fields = append(fields, zap.Any("query", logger.MaskValues(query)))
		}
		if id := c.GetInt("id"); id != 0 {
			fields = append(fields, zap.Int("user_id", id))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.LogError(c.Request.Context(), "request", fields...)
		case status >= 400:
			logger.LogWarn(c.Request.Context(), "request", fields...)
		default:
			logger.LogInfo(c.Request.Context(), "request", fields...)
		}
	})
}
