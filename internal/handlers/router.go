package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/verisona-ai/analysis-service/internal/services"
	"github.com/verisona-ai/analysis-service/internal/utils"
	"github.com/verisona-ai/analysis-service/internal/validator"
)

type HandlerManager struct {
	analysisHandler *AnalysisHandler
	reportHandler   *ReportHandler
}

func NewHandlerManager(
	analysisService *services.AnalysisService,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		analysisHandler: NewAnalysisHandler(analysisService, v, logger),
		reportHandler:   NewReportHandler(analysisService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "analysis-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware())
	{
		// Analysis routes
		analysis := v1.Group("/analysis")
		{
			analysis.POST("/batch", hm.analysisHandler.BatchAnalysis)
			analysis.POST("/:session_id", hm.analysisHandler.StartAnalysis)
			analysis.GET("/:session_id", hm.analysisHandler.GetAnalysisStatus)
			analysis.POST("/:session_id/stream", hm.analysisHandler.StreamAnalysis)
		}

		// Report routes
		reports := v1.Group("/reports")
		{
			reports.GET("", hm.reportHandler.ListReports)
			reports.GET("/sessions", hm.reportHandler.ListSessionReports)
			reports.GET("/:id", hm.reportHandler.GetReport)
			reports.POST("/:id/retry", hm.reportHandler.RetryReport)
			reports.GET("/:id/export", hm.reportHandler.ExportReport)
		}
	}
}
