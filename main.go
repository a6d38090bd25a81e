package main

// @title BlackCnote API
// @version 1.0
// @description Investment platform APIs (users, gateways, deposits, plans, invests, withdrawals, referrals).
// @BasePath /api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blackcnote/cli"
	"blackcnote/common/config"
	"blackcnote/common/logger"
	"blackcnote/common/oidc"
	"blackcnote/common/redis"
	"blackcnote/common/requester"
	"blackcnote/common/scheduler"
	"blackcnote/cron"
	_ "blackcnote/docs" // swagger docs
	"blackcnote/middleware"
	"blackcnote/model"
	"blackcnote/router"
	"blackcnote/worker"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// Note: indexPage left empty; router will serve a simple fallback page when empty.
var indexPage []byte

func main() {
	if tz := os.Getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			time.Local = loc
		}
	}

	cli.InitCli()
	config.InitConf()
	if viper.GetString("log_level") == "debug" {
		config.Debug = true
	}

	logger.SetupLogger()
	logger.SysLog(config.SystemName + " started: " + config.Version)

	model.SetupDB()
	defer model.CloseDB()
	redis.InitRedisClient()
	requester.InitHttpClient()
	model.InitOptionMap()
	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()
	go model.SyncOptions(syncCtx, viper.GetInt("sync_frequency"))
	oidc.InitOIDCConfig()

	worker.InitWorker()
	defer worker.CloseWorker()

	cron.InitCron()
	defer scheduler.Manager.Shutdown()

	initHttpServer()
}

func initHttpServer() {
	if viper.GetString("gin_mode") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.Use(gin.Recovery())
	server.Use(middleware.RequestId())
	middleware.SetUpLogger(server)

	trustedHeader := viper.GetString("trusted_header")
	if trustedHeader != "" {
		server.TrustedPlatform = trustedHeader
	}

	store := cookie.NewStore([]byte(config.SessionSecret))
	isHTTPS := viper.GetBool("https") || trustedHeader == "CF-Connecting-IP"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   2592000, // 30 days
		HttpOnly: true,
		Secure:   isHTTPS,
		SameSite: http.SameSiteLaxMode,
	})
	server.Use(sessions.Sessions("session", store))

	router.SetRouter(server, indexPage)

	srv := &http.Server{
		Addr:              ":" + viper.GetString("port"),
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalLog("failed to start HTTP server: " + err.Error())
		}
	}()
	logger.SysLog("HTTP server listening on " + srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.SysLog("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.SysError("server forced to shutdown: " + err.Error())
	}
}
