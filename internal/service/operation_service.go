package service

import (
	"context"

	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/repository"
	"github.com/rs/zerolog"
)

// operationService is the concrete implementation of OperationService
type operationService struct {
	ops repository.OperationRepository
	log zerolog.Logger
}

// newOperationService creates a new OperationService
func newOperationService(ops repository.OperationRepository, log zerolog.Logger) *operationService {
	return &operationService{
		ops: ops,
		log: log.With().Str("service", "operation").Logger(),
	}
}

// GetStatus retrieves the persisted record for one job, or nil when unknown
func (s *operationService) GetStatus(ctx context.Context, operationID string) (*models.OperationRecord, error) {
	return s.ops.GetByID(ctx, operationID)
}

// Cancel requests cooperative cancellation of a running job
func (s *operationService) Cancel(ctx context.Context, operationID string) (*models.CancelResult, error) {
	return s.ops.Cancel(ctx, operationID)
}

// List returns one page of the operation history, newest first
func (s *operationService) List(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error) {
	return s.ops.List(ctx, filters, page, limit)
}
