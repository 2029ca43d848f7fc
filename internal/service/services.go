package service

import (
	"context"

	"github.com/booking-admin-bulk-api/internal/config"
	"github.com/booking-admin-bulk-api/internal/engine"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/repository"
	"github.com/booking-admin-bulk-api/internal/store"
	"github.com/rs/zerolog"
)

// BulkService defines the interface for direct bulk mutations
type BulkService interface {
	ExecuteMutation(ctx context.Context, req *models.MutationRequest) (*models.OperationResult, error)
}

// ImportService defines the interface for file-based imports
type ImportService interface {
	ProcessImport(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error)
}

// OperationService defines the interface for job status management
type OperationService interface {
	GetStatus(ctx context.Context, operationID string) (*models.OperationRecord, error)
	Cancel(ctx context.Context, operationID string) (*models.CancelResult, error)
	List(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error)
}

// Services holds all service interfaces
type Services struct {
	Bulk      BulkService
	Import    ImportService
	Operation OperationService
}

// NewServices creates all services over one shared store and executor
func NewServices(st store.Store, cfg *config.Config, log zerolog.Logger) *Services {
	ops := repository.NewOperationRepo(st, log)
	exec := engine.NewExecutor(st, ops, log)

	return &Services{
		Bulk:      newBulkService(exec, cfg, log),
		Import:    newImportService(exec, cfg, log),
		Operation: newOperationService(ops, log),
	}
}
