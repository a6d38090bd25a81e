package middleware

import (
	"context"

	"blackcnote/common/logger"
	"blackcnote/common/utils"

	"github.com/gin-gonic/gin"
)

func RequestId() func(c *gin.Context) {
	return func(c *gin.Context) {
		id := c.GetHeader(logger.RequestIdKey)
		if id == "" || len(id) > 64 {
			id = utils.GetUUID()
		}
		c.Set(logger.RequestIdKey, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIdKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(logger.RequestIdKey, id)
		c.Next()
	}
}
