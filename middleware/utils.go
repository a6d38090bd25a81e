package middleware

import (
	"blackcnote/common/logger"
	"blackcnote/common/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func abortWithMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": utils.MessageWithRequestId(message, c.GetString(logger.RequestIdKey)),
	})
	c.Abort()
	logger.LogWarn(c.Request.Context(), message, zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
}
