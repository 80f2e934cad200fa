package http

import (
	"github.com/dailybelle/sizeadvisor/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/scans/:keyword", handler.LookupScan)

		recommendations := v1.Group("/recommendations")
		{
			recommendations.POST("", handler.Recommend)
			recommendations.POST("/scan", handler.RecommendFromScan)
		}

		v1.GET("/audit", handler.RecentAudit)
	}

	return router
}
