package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mxvalidator/api/handlers"
	"github.com/customeros/mxvalidator/api/middleware"
	"github.com/customeros/mxvalidator/config"
	"github.com/customeros/mxvalidator/internal/tracing"
	"github.com/customeros/mxvalidator/services"
)

const AppSource = "mxvalidator-api"

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, appConfig *config.AppConfig) {
	if s == nil {
		panic("Services cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	apiHandlers := handlers.InitHandlers(s, appConfig)

	r.GET("/health", handlers.HealthCheck)

	// Access flow, reachable before verification
	access := r.Group("")
	access.Use(middleware.CustomContextMiddleware(AppSource))
	access.Use(middleware.TracingMiddleware())
	{
		access.POST("/access", apiHandlers.Access.RequestAccess())
		access.GET("/verify", apiHandlers.Access.VerifyEmail())
		access.GET("/check-verification", apiHandlers.Access.CheckVerification())
	}

	accessGate := middleware.AccessGateMiddleware(middleware.AccessGateConfig{
		HeaderName:  middleware.HeaderAPIKey,
		ValidAPIKey: appConfig.APIKey,
		CookieName:  middleware.CookieVerifiedEmail,
	}, s.AccessService)

	// API group with version and custom context
	api := r.Group("/v1")
	api.Use(middleware.TracingMiddleware())
	api.Use(accessGate)
	api.Use(middleware.CustomContextMiddleware(AppSource)) // after the gate so the verified email is in context
	{
		batches := api.Group("/batches")
		{
			batches.POST("", apiHandlers.Batches.UploadBatch())
			batches.GET("/:batchId/records", apiHandlers.Batches.GetBatchRecords())
			batches.GET("/:batchId/report", apiHandlers.Reports.GetReport())
			batches.GET("/:batchId/export", apiHandlers.Reports.ExportCSV())
			batches.POST("/:batchId/export/archive", apiHandlers.Reports.ArchiveExport())
		}

		api.GET("/records", apiHandlers.Batches.GetAllRecords())
		api.GET("/exports/*key", apiHandlers.Reports.DownloadExport())
	}
}
