package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// OperationHandler handles job status, cancellation and history endpoints
type OperationHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewOperationHandler creates a new OperationHandler
func NewOperationHandler(services *service.Services, log zerolog.Logger) *OperationHandler {
	return &OperationHandler{
		services: services,
		log:      log.With().Str("handler", "operation").Logger(),
	}
}

// GetStatus handles GET /v1/operations/:operation_id
func (h *OperationHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	operationID := c.Param("operation_id")

	record, err := h.services.Operation.GetStatus(ctx, operationID)
	if err != nil {
		h.log.Error().Err(err).Str("operation_id", operationID).Msg("Failed to get operation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get operation status"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetErrors handles GET /v1/operations/:operation_id/errors. With
// ?format=csv the error list downloads as a CSV report.
func (h *OperationHandler) GetErrors(c *gin.Context) {
	ctx := c.Request.Context()
	operationID := c.Param("operation_id")

	record, err := h.services.Operation.GetStatus(ctx, operationID)
	if err != nil {
		h.log.Error().Err(err).Str("operation_id", operationID).Msg("Failed to get operation errors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get errors"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "operation not found"})
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", operationID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"index", "item_id", "code", "message"})
		for _, e := range record.Errors {
			writer.Write([]string{strconv.Itoa(e.Index), e.ItemID, e.Code, e.Message})
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			h.log.Error().Err(err).Str("operation_id", operationID).Msg("Failed to stream error report")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operation_id": operationID,
		"error_count":  len(record.Errors),
		"errors":       record.Errors,
		"warnings":     record.Warnings,
	})
}

// Cancel handles POST /v1/operations/:operation_id/cancel
func (h *OperationHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()
	operationID := c.Param("operation_id")

	result, err := h.services.Operation.Cancel(ctx, operationID)
	if err != nil {
		h.log.Error().Err(err).Str("operation_id", operationID).Msg("Failed to cancel operation")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel operation"})
		return
	}

	status := http.StatusOK
	if !result.Cancelled && result.Message == "operation not found" {
		status = http.StatusNotFound
	}
	c.JSON(status, result)
}

// ListOperations handles GET /v1/operations
func (h *OperationHandler) ListOperations(c *gin.Context) {
	ctx := c.Request.Context()

	filters := models.OperationFilters{
		EntityType:    models.EntityType(c.Query("entity_type")),
		OperationKind: models.OperationKind(c.Query("operation")),
		Status:        models.OperationStatus(c.Query("status")),
		CreatedBy:     c.Query("user_id"),
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.services.Operation.List(ctx, filters, page, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list operations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list operations"})
		return
	}

	c.JSON(http.StatusOK, result)
}
