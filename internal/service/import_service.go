package service

import (
	"context"
	"fmt"

	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/engine"
	"github.com/booking-admin-bulk-api/internal/importer"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	exec *engine.Executor
	cfg  *config.Config
	log  zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(exec *engine.Executor, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		exec: exec,
		cfg:  cfg,
		log:  log.With().Str("service", "import").Logger(),
	}
}

// ProcessImport parses the uploaded payload, applies field mapping and
// defaults, and drives the rows through the chunked executor as a create
// operation. Parse failures reject the whole request before any row or
// operation record is touched.
func (s *importService) ProcessImport(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error) {
	if int64(len(req.FileBytes)) > s.cfg.Bulk.MaxUploadSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", models.ErrMalformedInput, s.cfg.Bulk.MaxUploadSize)
	}

	rows, err := importer.Parse(req.FileBytes, req.Format)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.ErrEmptyRequest
	}

	s.log.Info().
		Str("format", string(req.Format)).
		Str("entity_type", string(req.EntityType)).
		Int("rows", len(rows)).
		Msg("Import parsed")

	items := make([]models.RawRecord, len(rows))
	for i, row := range rows {
		items[i] = importer.ApplyMapping(row, req.FieldMapping, req.DefaultValues)
	}

	options := req.Options
	if options.ChunkSize <= 0 {
		options.ChunkSize = s.cfg.Bulk.DefaultChunkSize
	}
	// Degrading validation failures to warnings is a direct-mutation
	// concession; imports always validate.
	options.SkipValidation = false

	result, err := s.exec.Execute(ctx, &engine.Request{
		OperationKind: models.OpCreate,
		EntityType:    req.EntityType,
		Items:         items,
		Options:       options,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	return &models.ImportResult{
		OperationResult: *result.OperationResult,
		Duplicates:      result.Duplicates,
	}, nil
}
