package router

import (
	"net/http"

	"blackcnote/common/config"
	"blackcnote/middleware"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// SetWebRouter 未构建前端时返回一个占位首页
func SetWebRouter(engine *gin.Engine, indexPage []byte) {
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.Use(middleware.GlobalWebRateLimit())

	engine.GET("/", func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache")
		if len(indexPage) == 0 {
			page := "<!doctype html><html><head><meta charset=\"utf-8\"><title>" + config.SystemName + "</title></head><body><h1>" +
				config.SystemName + "</h1><p>API is served under /api, docs under /swagger/index.html.</p></body></html>"
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexPage)
	})

	engine.GET("/favicon.ico", func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=3600")
		c.Status(http.StatusNoContent)
	})
}
