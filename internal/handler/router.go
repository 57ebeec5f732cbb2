package handler

import (
	"controltower/internal/auth"
	"controltower/internal/config"
	"controltower/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
//
// 限流分三档：全量接口走 global，资金接口走 strict，
// 免认证的邀请接受接口走最紧的 auth 档（防凭证爆破）。
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器与认证器
	h := NewHandler(db, rdb, cfg)
	authn := NewAuthenticator(db, cfg)

	globalLimiter := ratelimit.New(ratelimit.TierGlobal)
	strictLimiter := ratelimit.New(ratelimit.TierStrict)
	authLimiter := ratelimit.New(ratelimit.TierAuth)

	// 上传文件的公共访问路径
	r.Static("/public", cfg.Upload.Dir)

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(globalLimiter.Middleware())
	{
		// 支付回调：不走认证，合法性靠签名
		api.POST("/webhooks/payment", h.HandlePaymentWebhook)

		// 邀请接受：ID 即凭证，免认证但限流最紧
		api.POST("/invites/:id/accept", authLimiter.Middleware(), h.AcceptInvite)

		// 资金相关
		credits := api.Group("/credits")
		credits.Use(strictLimiter.Middleware())
		{
			credits.POST("/:teamId/grant", authn.Require(auth.RoleSuperAdmin), h.GrantCredits)
			credits.POST("/:teamId/purchase", authn.Require(auth.RoleUser), h.PurchaseCredits)
			credits.POST("/report-run", authn.Require(auth.RoleInternal), h.ReportRun)
			credits.GET("/:teamId", authn.Require(auth.RoleUser), h.GetWallet)
			credits.GET("/:teamId/transactions", authn.Require(auth.RoleAdmin), h.ListWalletTransactions)
			credits.GET("/:teamId/auto-refill", authn.Require(auth.RoleUser), h.GetAutoRefill)
			credits.POST("/:teamId/auto-refill", authn.Require(auth.RoleUser), h.ConfigureAutoRefill)
		}

		// 管理端接口
		admin := api.Group("")
		admin.Use(authn.Require(auth.RoleAdmin))
		{
			// 用户
			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.CreateUser)
			admin.GET("/users/:id", h.GetUser)
			admin.PATCH("/users/:id", h.UpdateUser)

			// 团队与成员
			admin.GET("/teams", h.ListTeams)
			admin.POST("/teams", h.CreateTeam)
			admin.GET("/teams/:id", h.GetTeam)
			admin.PATCH("/teams/:id", h.UpdateTeam)
			admin.DELETE("/teams/:id", h.DeleteTeam)
			admin.GET("/teams/:id/members", h.ListTeamMembers)
			admin.POST("/teams/:id/members", h.AddTeamMember)

			// 邀请
			admin.GET("/teams/:id/invites", h.ListInvites)
			admin.POST("/teams/:id/invites", h.CreateInvite)
			admin.DELETE("/invites/:id", h.CancelInvite)

			// Agent
			admin.GET("/agents", h.ListAgents)
			admin.POST("/agents", h.CreateAgent)
			admin.GET("/agents/:id", h.GetAgent)
			admin.PATCH("/agents/:id", h.UpdateAgent)
			admin.DELETE("/agents/:id", h.DeleteAgent)

			// 计费
			admin.GET("/billing/contracts", h.ListContracts)
			admin.POST("/billing/contracts", h.CreateContract)
			admin.GET("/billing/contracts/:id", h.GetContract)
			admin.PATCH("/billing/contracts/:id", h.UpdateContract)
			admin.DELETE("/billing/contracts/:id", h.DeleteContract)
			admin.GET("/billing/subscriptions", h.ListSubscriptions)
			admin.GET("/teams/:id/payment-methods", h.ListPaymentMethods)
			admin.POST("/teams/:id/payment-methods", h.AttachPaymentMethod)

			// 推荐
			admin.GET("/referrals", h.ListReferrals)
			admin.POST("/referrals", h.CreateReferral)
			admin.POST("/referrals/:code/convert", h.ConvertReferral)

			// 白标配置
			admin.GET("/teams/:id/white-label", h.GetWhiteLabel)
			admin.PUT("/teams/:id/white-label", h.PutWhiteLabel)

			// 上传
			admin.POST("/uploads", h.Upload)
			admin.DELETE("/uploads", h.DeleteUpload)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
