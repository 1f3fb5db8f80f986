package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jobdigest/jobdigest/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "jobdigest-api",
				"reason":  "database unreachable",
			})
			return
		}
		if deps.RabbitClient != nil && !deps.RabbitClient.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "jobdigest-api",
				"reason":  "broker disconnected",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "jobdigest-api",
		})
	})

	prefHandler := handler.NewPreferenceHandler(deps)
	notifHandler := handler.NewNotificationHandler(deps)

	v1 := r.Group("/api/v1")
	{
		subscribers := v1.Group("/subscribers/:subscriber_id")
		{
			// GET /api/v1/subscribers/:subscriber_id/preferences
			subscribers.GET("/preferences", prefHandler.GetPreference)

			// PUT /api/v1/subscribers/:subscriber_id/preferences
			subscribers.PUT("/preferences", prefHandler.PutPreference)

			// POST /api/v1/subscribers/:subscriber_id/notifications
			subscribers.POST("/notifications", notifHandler.NotifyNow)

			// POST /api/v1/subscribers/:subscriber_id/notifications/:job_id/click
			subscribers.POST("/notifications/:job_id/click", notifHandler.MarkClicked)
		}

		// GET /api/v1/stats
		v1.GET("/stats", notifHandler.Stats)
	}

	return r
}
