package handlers

import (
	"github.com/gin-gonic/gin"
	"image-studio-client/internal/middleware"
)

// NewRouter wires the local status API. /health is always open; /api/v1 is
// guarded by LocalAuth.
func NewRouter(status *StatusHandler, jobs *JobsHandler, apiToken string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", HealthHandler)

	api := router.Group("/api/v1")
	api.Use(middleware.LocalAuth(apiToken))
	{
		api.GET("/status", status.GetStatus)
		api.GET("/jobs", status.ListJobs)
		api.POST("/jobs", jobs.SubmitJob)
		api.GET("/gallery", status.GetGallery)
	}

	return router
}
