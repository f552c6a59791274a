package bootstrap

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/universal-inbox/universal-inbox/internal/config"
	"github.com/universal-inbox/universal-inbox/internal/handlers"
	"github.com/universal-inbox/universal-inbox/internal/middleware"
	"github.com/universal-inbox/universal-inbox/internal/services"
	"github.com/universal-inbox/universal-inbox/internal/store"
)

type handlerSet struct {
	connections *services.IntegrationConnectionService
	sync        *services.SyncService
}

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(cfg *config.Config, db *store.Store, h handlerSet) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", createHealthCheckHandler(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	connectionHandler := handlers.NewConnectionHandler(h.connections)
	syncHandler := handlers.NewSyncHandler(h.sync)

	api := r.Group("/api")
	api.Use(middleware.RequireAuth(cfg.JWTSecret))
	{
		api.POST("/integration-connections", connectionHandler.Create)
		api.GET("/integration-connections", connectionHandler.List)
		api.PATCH("/integration-connections/:id", connectionHandler.Verify)
		api.DELETE("/integration-connections/:id", connectionHandler.Disconnect)
		api.PUT("/integration-connections/:id/config", connectionHandler.UpdateConfig)

		api.POST("/sync", middleware.RateLimit(cfg.SyncRateLimitPerMinute), syncHandler.Sync)
		api.POST("/tasks/:id/sink-item", syncHandler.CreateSinkItem)
	}

	return r
}

// createHealthCheckHandler creates the health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}
