package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricehawk/pricehawk/internal/api/handlers"
	"github.com/pricehawk/pricehawk/internal/database"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Handlers bundles the route handlers wired by SetupRoutes.
type Handlers struct {
	Tracking      *handlers.TrackingHandler
	Notifications *handlers.NotificationHandler
	Products      *handlers.ProductHandler
	Search        *handlers.SearchHandler
	Admin         *handlers.AdminHandler
}

func SetupRoutes(router *gin.Engine, db *database.PostgresDB, redis *database.RedisClient, h Handlers) {
	router.GET("/health", healthCheck(db, redis))

	v1 := router.Group("/api/v1")
	{
		tracking := v1.Group("/tracking")
		{
			tracking.POST("/track", h.Tracking.TrackProduct)
			tracking.DELETE("/untrack/:productId", h.Tracking.UntrackProduct)
			tracking.GET("/products", h.Tracking.GetTrackedProducts)
			tracking.PATCH("/preferences/:productId", h.Tracking.UpdatePreferences)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notifications.GetNotifications)
			notifications.GET("/unread_count", h.Notifications.GetUnreadCount)
			notifications.PATCH("/:id/read", h.Notifications.MarkAsRead)
			notifications.PATCH("/read_all", h.Notifications.MarkAllAsRead)
			notifications.DELETE("/:id", h.Notifications.DeleteNotification)
			notifications.DELETE("", h.Notifications.DeleteAllNotifications)
			notifications.POST("/send_test", h.Notifications.SendTest)
		}

		products := v1.Group("/products")
		{
			products.GET("/:id/history", h.Products.GetPriceHistory)
			products.GET("/:id/forecast", h.Products.GetForecast)
			products.GET("/:id/analysis", h.Products.GetAnalysis)
		}

		search := v1.Group("/search")
		{
			search.GET("", h.Search.Search)
			search.POST("/compare", h.Search.Compare)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/stats", h.Admin.GetDataStats)
			admin.POST("/cleanup", h.Admin.TriggerCleanup)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
