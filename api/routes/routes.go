package routes

import (
	"example.com/cloudpanel/api/handlers"
	"example.com/cloudpanel/api/middleware"
	"example.com/cloudpanel/internal/models"
	"example.com/cloudpanel/internal/repository"
	"example.com/cloudpanel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(r *gin.Engine, svc service.Service, repo repository.Repository, log *logrus.Logger) {
	// Health check
	r.GET("/health", handlers.HealthCheck)

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(repo, log, models.ViewerAuthLevel))

	// Event routes
	eventHandler := handlers.NewEventHandler(svc, log)
	events := api.Group("/events")
	{
		events.GET("", eventHandler.ListEvents)
		events.GET("/:uuid", eventHandler.GetEvent)
		events.DELETE("/:uuid", eventHandler.DeleteEvent)
		events.GET("/job/:jobId", eventHandler.ListEventsByJob)
		events.GET("/owner/:ownerId", eventHandler.ListOwnerEvents)

		events.POST("/actions", eventHandler.DispatchAction)
		events.POST("/alerts", eventHandler.RecordAlert)
	}

	// Job callback routes. Write access required: these mutate the ledger.
	jobHandler := handlers.NewJobHandler(svc, log)
	jobs := api.Group("/jobs")
	jobs.Use(middleware.APIKeyAuth(repo, log, models.WriterAuthLevel))
	{
		jobs.POST("/status", jobHandler.SyncResourceStatus)
		jobs.POST("/volumes", jobHandler.AsyncVolume)
		jobs.POST("/network-offerings", jobHandler.AsyncNetworkOffering)
		jobs.POST("/vms/:uuid/sync", jobHandler.SyncVMUpdate)

		// System monitoring endpoints
		jobs.GET("/stats/processor", jobHandler.ProcessorStats)
	}

	// Quota routes
	quotaHandler := handlers.NewQuotaHandler(svc, log)
	quotas := api.Group("/departments/:departmentId/quotas")
	{
		quotas.GET("", quotaHandler.ListCounts)
		quotas.PUT("", quotaHandler.SetLimit)
	}

	// Resource routes
	resourceHandler := handlers.NewResourceHandler(svc, log)
	resources := api.Group("/departments/:departmentId")
	{
		resources.GET("/vms", resourceHandler.ListVMs)
		resources.GET("/volumes", resourceHandler.ListVolumes)
	}
}
