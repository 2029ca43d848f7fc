package api

import (
	"net/http"

	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// BulkHandler handles direct bulk mutation endpoints
type BulkHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *BulkHandler {
	return &BulkHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "bulk").Logger(),
	}
}

// ExecuteMutation handles POST /v1/bulk
func (h *BulkHandler) ExecuteMutation(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = c.GetHeader("X-User-ID")
	}

	result, err := h.services.Bulk.ExecuteMutation(ctx, &req)
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.log.Error().Err(err).Msg("Bulk mutation failed")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.log.Info().
		Str("operation_id", result.OperationID).
		Int("total", result.TotalItems).
		Int("successful", result.SuccessCount).
		Int("failed", result.FailureCount).
		Msg("Bulk mutation executed")

	c.JSON(http.StatusOK, result)
}
