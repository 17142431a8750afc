package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aripzuan/BackEndAPI/pkg/bookings"
	"github.com/aripzuan/BackEndAPI/pkg/courts"
	"github.com/aripzuan/BackEndAPI/pkg/database"
	"github.com/aripzuan/BackEndAPI/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const healthTimeout = 2 * time.Second

func newRouter(db *gorm.DB, registry *courts.Registry, ledger *bookings.Ledger, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestID(), logger.RequestLogger(log))

	ch := &courtHandler{registry: registry}
	bh := &bookingHandler{ledger: ledger}

	api := r.Group("/api")
	{
		api.GET("/courts", ch.list)
		api.GET("/courts/:id", ch.get)
		api.POST("/courts", ch.create)
		api.PUT("/courts/:id", ch.update)
		api.DELETE("/courts/:id", ch.delete)

		api.GET("/bookings", bh.list)
		api.POST("/bookings", bh.create)
		api.PUT("/bookings/:id", bh.update)
		api.DELETE("/bookings/:id", bh.delete)
	}

	r.GET("/manage/health", healthCheck(db))
	return r
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := database.Ping(ctx, db); err != nil {
			logger.FromContext(c).Warn().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "DOWN",
				"details": "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	}
}

func withCORS(origins []string, h http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", logger.RequestIDHeader}),
		handlers.ExposedHeaders([]string{logger.RequestIDHeader}),
	)(h)
}
