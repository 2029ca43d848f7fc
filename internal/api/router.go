package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	bulkHandler := NewBulkHandler(services, cfg, log)
	importHandler := NewImportHandler(services, cfg, log)
	operationHandler := NewOperationHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)

	// API v1
	v1 := router.Group("/v1")
	{
		v1.POST("/bulk", bulkHandler.ExecuteMutation)
		v1.POST("/imports", importHandler.CreateImport)

		operations := v1.Group("/operations")
		{
			operations.GET("", operationHandler.ListOperations)
			operations.GET("/:operation_id", operationHandler.GetStatus)
			operations.GET("/:operation_id/errors", operationHandler.GetErrors)
			operations.POST("/:operation_id/cancel", operationHandler.Cancel)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "booking-admin-bulk-api",
	})
}

// statusForError maps the fatal request taxonomy to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrMalformedInput),
		errors.Is(err, models.ErrUnsupportedFormat),
		errors.Is(err, models.ErrUnsupportedOperation),
		errors.Is(err, models.ErrUnsupportedEntityType),
		errors.Is(err, models.ErrEmptyRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
