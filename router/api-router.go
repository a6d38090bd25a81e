package router

import (
	"blackcnote/controller"
	"blackcnote/middleware"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetApiRouter(engine *gin.Engine) {
	api := engine.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(middleware.CORS())
	api.Use(middleware.SecurityHeaders())
	api.Use(middleware.NoCache())

	// metrics
	api.GET("/metrics", middleware.MetricsWithBasicAuth(), gin.WrapH(promhttp.Handler()))

	// 网关回调不走全局限流，使用独立额度
	api.Any("/payment/notify/:uuid", middleware.CallbackRateLimit(), controller.PaymentCallback)

	api.Use(middleware.GlobalAPIRateLimit())

	api.GET("/status", controller.GetStatus)

	// 邮件相关
	api.GET("/verification", middleware.CriticalRateLimit(), controller.SendEmailVerification)
	api.GET("/reset_password", middleware.CriticalRateLimit(), controller.SendPasswordResetEmail)
	api.POST("/user/reset", middleware.CriticalRateLimit(), controller.ResetPassword)

	// OIDC 登录
	api.GET("/oauth/endpoint", middleware.CriticalRateLimit(), controller.OIDCEndpoint)
	api.GET("/oauth/oidc", middleware.CriticalRateLimit(), controller.OIDCAuth)
	api.GET("/oauth/email/bind", middleware.CriticalRateLimit(), middleware.UserAuth(), controller.EmailBind)

	user := api.Group("/user")
	{
		user.POST("/register", middleware.CriticalRateLimit(), controller.Register)
		user.POST("/login", middleware.CriticalRateLimit(), controller.Login)
		user.GET("/logout", controller.Logout)

		self := user.Group("/")
		self.Use(middleware.UserAuth())
		self.GET("/self", controller.GetSelf)
		self.PUT("/self", controller.UpdateSelf)
		self.GET("/token", controller.GenerateAccessToken)
		self.GET("/dashboard", controller.GetUserDashboard)
		self.GET("/referrals", controller.GetSelfReferrals)
		self.GET("/2fa", controller.Get2FASetup)
		self.POST("/2fa/enable", middleware.CriticalRateLimit(), controller.Enable2FA)
		self.POST("/2fa/disable", middleware.CriticalRateLimit(), controller.Disable2FA)

		admin := user.Group("/")
		admin.Use(middleware.AdminAuth())
		admin.GET("/", controller.GetUsersList)
		admin.GET("/:id", controller.GetUser)
		admin.POST("/", controller.CreateUser)
		admin.PUT("/", controller.UpdateUser)
		admin.DELETE("/:id", controller.DeleteUser)
		admin.POST("/manage", controller.ManageUser)
		admin.POST("/balance", controller.AdjustUserBalance)
	}

	option := api.Group("/option")
	option.Use(middleware.RootAuth())
	option.GET("/", controller.GetOptions)
	option.PUT("/", controller.UpdateOption)

	gateway := api.Group("/gateway")
	{
		gateway.GET("/user", middleware.UserAuth(), controller.GetUserGatewayList)

		gatewayAdmin := gateway.Group("/")
		gatewayAdmin.Use(middleware.AdminAuth())
		gatewayAdmin.GET("/aliases", controller.GetGatewayAliases)
		gatewayAdmin.GET("/", controller.GetGatewayList)
		gatewayAdmin.GET("/:id", controller.GetGateway)
		gatewayAdmin.POST("/", controller.AddGateway)
		gatewayAdmin.PUT("/", controller.UpdateGateway)
		gatewayAdmin.DELETE("/:id", controller.DeleteGateway)
	}

	deposit := api.Group("/deposit")
	{
		depositUser := deposit.Group("/")
		depositUser.Use(middleware.UserAuth())
		depositUser.GET("/quote", controller.QuoteDeposit)
		depositUser.POST("/", middleware.CriticalRateLimit(), controller.CreateDeposit)
		depositUser.GET("/status", controller.CheckDepositStatus)
		depositUser.GET("/self", controller.GetSelfDepositList)
		depositUser.POST("/manual", controller.SubmitManualDeposit)

		depositAdmin := deposit.Group("/")
		depositAdmin.Use(middleware.AdminAuth())
		depositAdmin.GET("/", controller.GetDepositList)
		depositAdmin.GET("/statistics", controller.GetDepositStatistics)
		depositAdmin.POST("/:id/approve", controller.ApproveDeposit)
		depositAdmin.POST("/:id/reject", controller.RejectDeposit)
	}

	plan := api.Group("/plan")
	{
		plan.GET("/", controller.GetEnabledPlans)

		planAdmin := plan.Group("/")
		planAdmin.Use(middleware.AdminAuth())
		planAdmin.GET("/admin", controller.GetPlanList)
		planAdmin.POST("/", controller.AddPlan)
		planAdmin.PUT("/", controller.UpdatePlan)
		planAdmin.DELETE("/:id", controller.DeletePlan)
	}

	invest := api.Group("/invest")
	{
		invest.POST("/", middleware.UserAuth(), controller.Invest)
		invest.GET("/self", middleware.UserAuth(), controller.GetSelfInvestList)
		invest.GET("/", middleware.AdminAuth(), controller.GetInvestList)
	}

	withdraw := api.Group("/withdraw")
	{
		withdraw.GET("/method", middleware.UserAuth(), controller.GetWithdrawMethods)
		withdraw.POST("/", middleware.UserAuth(), middleware.CriticalRateLimit(), controller.RequestWithdraw)
		withdraw.GET("/self", middleware.UserAuth(), controller.GetSelfWithdrawList)

		withdrawAdmin := withdraw.Group("/")
		withdrawAdmin.Use(middleware.AdminAuth())
		withdrawAdmin.POST("/method", controller.AddWithdrawMethod)
		withdrawAdmin.PUT("/method", controller.UpdateWithdrawMethod)
		withdrawAdmin.DELETE("/method/:id", controller.DeleteWithdrawMethod)
		withdrawAdmin.GET("/", controller.GetWithdrawList)
		withdrawAdmin.POST("/:id/:action", controller.ReviewWithdraw)
	}

	transaction := api.Group("/transaction")
	{
		transaction.GET("/self", middleware.UserAuth(), controller.GetSelfTransactions)
		transaction.GET("/", middleware.AdminAuth(), controller.GetTransactions)
	}

	referral := api.Group("/referral")
	{
		referral.GET("/levels", middleware.UserAuth(), controller.GetReferralLevels)
		referral.PUT("/levels", middleware.AdminAuth(), controller.SetReferralLevels)
	}

	api.GET("/dashboard/", middleware.AdminAuth(), controller.GetAdminDashboard)
}
