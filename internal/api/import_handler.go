package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImportHandler handles file import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/imports. The upload arrives as multipart
// form data; options and field mapping ride along as form fields.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()

	entityType := models.EntityType(c.PostForm("entity_type"))
	if entityType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entity_type form field is required"})
		return
	}
	if !entityType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown entity_type %q", entityType)})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Bulk.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Bulk.MaxUploadSize/(1024*1024)),
		})
		return
	}

	format, err := resolveFormat(c.PostForm("format"), header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileBytes, err := io.ReadAll(io.LimitReader(file, h.cfg.Bulk.MaxUploadSize+1))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	if int64(len(fileBytes)) > h.cfg.Bulk.MaxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Bulk.MaxUploadSize/(1024*1024)),
		})
		return
	}

	req := &models.ImportRequest{
		Format:     format,
		FileBytes:  fileBytes,
		EntityType: entityType,
		Options: models.Options{
			ChunkSize:       formInt(c, "chunk_size"),
			ContinueOnError: formBool(c, "continue_on_error"),
			UpdateExisting:  formBool(c, "update_existing"),
			MatchingField:   c.PostForm("matching_field"),
		},
		CreatedBy: c.GetHeader("X-User-ID"),
	}

	if mapping := c.PostForm("field_mapping"); mapping != "" {
		if err := json.Unmarshal([]byte(mapping), &req.FieldMapping); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field_mapping must be a JSON object of string to string"})
			return
		}
	}
	if defaults := c.PostForm("default_values"); defaults != "" {
		if err := json.Unmarshal([]byte(defaults), &req.DefaultValues); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "default_values must be a JSON object"})
			return
		}
	}

	result, err := h.services.Import.ProcessImport(ctx, req)
	if err != nil {
		status := statusForError(err)
		if status >= 500 {
			h.log.Error().Err(err).Msg("Import failed")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.log.Info().
		Str("operation_id", result.OperationID).
		Str("entity_type", string(entityType)).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Int("total", result.TotalItems).
		Int("successful", result.SuccessCount).
		Int("failed", result.FailureCount).
		Msg("Import processed")

	c.JSON(http.StatusOK, result)
}

// resolveFormat picks the import format from the explicit form field,
// falling back to the file extension.
func resolveFormat(explicit, filename string) (models.ImportFormat, error) {
	if explicit != "" {
		switch models.ImportFormat(explicit) {
		case models.FormatCSV, models.FormatSpreadsheet, models.FormatJSON:
			return models.ImportFormat(explicit), nil
		}
		return "", fmt.Errorf("format must be one of: csv, xlsx, json")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return models.FormatCSV, nil
	case ".xlsx":
		return models.FormatSpreadsheet, nil
	case ".json":
		return models.FormatJSON, nil
	}
	return "", fmt.Errorf("cannot determine format from filename %q, pass the format form field", filename)
}

func formInt(c *gin.Context, key string) int {
	if v := c.PostForm(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func formBool(c *gin.Context, key string) bool {
	if v := c.PostForm(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return false
}
