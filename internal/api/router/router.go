package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediagrab/fetch-api/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "media-fetch-api",
		})
	})

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// POST /api/v1/downloads - submit a single-item job
		v1.POST("/downloads", jobHandler.SubmitDownload)

		// POST /api/v1/playlists - submit a collection job
		v1.POST("/playlists", jobHandler.SubmitPlaylist)

		jobsGroup := v1.Group("/jobs")
		{
			// GET /api/v1/jobs - list jobs
			jobsGroup.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - poll job status
			jobsGroup.GET("/:job_id", jobHandler.GetJob)

			// GET /api/v1/jobs/:job_id/file - retrieve the result
			jobsGroup.GET("/:job_id/file", jobHandler.DeliverResult)

			// POST /api/v1/jobs/:job_id/cancel - cancel a job
			jobsGroup.POST("/:job_id/cancel", jobHandler.CancelJob)
		}
	}

	return r
}
