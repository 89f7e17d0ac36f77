package router

import (
	"github.com/csacanam/fanio-sub001/internal/handler"
	"github.com/csacanam/fanio-sub001/internal/logic"
	"github.com/gin-gonic/gin"
)

func Setup(campaignLogic *logic.CampaignLogic, ledgerLogic *logic.LedgerLogic, refundLogic *logic.RefundLogic, settlementLogic *logic.SettlementLogic) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fanio-funding-service",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 活动相关路由
		campaignHandler := handler.NewCampaignHandler(campaignLogic)
		contributionHandler := handler.NewContributionHandler(ledgerLogic)
		settlementHandler := handler.NewSettlementHandler(refundLogic, settlementLogic)
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.CreateCampaign)
			campaigns.GET("", campaignHandler.GetCampaigns)
			campaigns.GET("/:id", campaignHandler.GetCampaign)
			campaigns.POST("/:id/contributions", campaignHandler.Contribute)
			campaigns.POST("/:id/close", campaignHandler.CloseCampaign)
			campaigns.GET("/:id/status", campaignHandler.GetCampaignStatus)
			campaigns.GET("/:id/token", campaignHandler.GetCampaignToken)
			campaigns.GET("/:id/contributions", contributionHandler.GetCampaignContributions)
			campaigns.GET("/:id/contributions/stats", contributionHandler.GetContributionStats)
			campaigns.GET("/:id/refunds", settlementHandler.GetCampaignRefunds)
			campaigns.GET("/:id/settlements", settlementHandler.GetCampaignSettlements)
		}

		// 全局统计
		v1.GET("/stats", campaignHandler.GetGlobalStats)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
