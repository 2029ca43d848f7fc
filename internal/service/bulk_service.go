package service

import (
	"context"

	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/engine"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/rs/zerolog"
)

// bulkService is the concrete implementation of BulkService
type bulkService struct {
	exec *engine.Executor
	cfg  *config.Config
	log  zerolog.Logger
}

// newBulkService creates a new BulkService
func newBulkService(exec *engine.Executor, cfg *config.Config, log zerolog.Logger) *bulkService {
	return &bulkService{
		exec: exec,
		cfg:  cfg,
		log:  log.With().Str("service", "bulk").Logger(),
	}
}

// ExecuteMutation runs a direct bulk mutation through the chunked executor.
// Items arrive typed by the caller; no parsing or field mapping applies.
func (s *bulkService) ExecuteMutation(ctx context.Context, req *models.MutationRequest) (*models.OperationResult, error) {
	options := req.Options
	if options.ChunkSize <= 0 {
		options.ChunkSize = s.cfg.Bulk.DefaultChunkSize
	}

	result, err := s.exec.Execute(ctx, &engine.Request{
		OperationKind: req.OperationKind,
		EntityType:    req.EntityType,
		Items:         req.Items,
		Options:       options,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	return result.OperationResult, nil
}
