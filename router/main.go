package router

import (
	"net/http"
	"strings"

	"blackcnote/common/config"
	"blackcnote/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetRouter(engine *gin.Engine, indexPage []byte) {
	SetApiRouter(engine)
	redirect := frontendRedirect()

	if viper.GetBool("swagger_enabled") {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// 未知的 /api 路径统一返回 JSON，避免落到前端页面
	engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "接口不存在"})
			return
		}
		if redirect != "" {
			c.Redirect(http.StatusMovedPermanently, redirect+c.Request.RequestURI)
			return
		}
		c.Status(http.StatusNotFound)
	})

	if redirect == "" {
		SetWebRouter(engine, indexPage)
	}
}

// frontendRedirect 从节点配置了 frontend_base_url 时返回跳转前缀，主节点始终自己提供页面
func frontendRedirect() string {
	base := strings.TrimSuffix(viper.GetString("frontend_base_url"), "/")
	if base == "" {
		return ""
	}
	if config.IsMasterNode {
		logger.SysLog("frontend_base_url is ignored on master node")
		return ""
	}
	return base
}
