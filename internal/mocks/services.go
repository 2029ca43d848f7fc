package mocks

import (
	"context"

	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/service"
)

// MockBulkService is a mock implementation of BulkService
type MockBulkService struct {
	ExecuteFunc func(ctx context.Context, req *models.MutationRequest) (*models.OperationResult, error)
	Requests    []*models.MutationRequest
}

// Verify interface compliance
var _ service.BulkService = (*MockBulkService)(nil)

func NewMockBulkService() *MockBulkService {
	return &MockBulkService{
		Requests: make([]*models.MutationRequest, 0),
	}
}

func (m *MockBulkService) ExecuteMutation(ctx context.Context, req *models.MutationRequest) (*models.OperationResult, error) {
	m.Requests = append(m.Requests, req)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, req)
	}
	return &models.OperationResult{
		Success:      true,
		OperationID:  "test-operation-id",
		TotalItems:   len(req.Items),
		SuccessCount: len(req.Items),
	}, nil
}

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	ProcessFunc func(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error)
	Requests    []*models.ImportRequest
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{
		Requests: make([]*models.ImportRequest, 0),
	}
}

func (m *MockImportService) ProcessImport(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error) {
	m.Requests = append(m.Requests, req)
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, req)
	}
	return &models.ImportResult{
		OperationResult: models.OperationResult{
			Success:     true,
			OperationID: "test-operation-id",
		},
	}, nil
}

// MockOperationService is a mock implementation of OperationService
type MockOperationService struct {
	Records    map[string]*models.OperationRecord
	CancelFunc func(ctx context.Context, operationID string) (*models.CancelResult, error)
	ListFunc   func(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error)
}

// Verify interface compliance
var _ service.OperationService = (*MockOperationService)(nil)

func NewMockOperationService() *MockOperationService {
	return &MockOperationService{
		Records: make(map[string]*models.OperationRecord),
	}
}

func (m *MockOperationService) GetStatus(ctx context.Context, operationID string) (*models.OperationRecord, error) {
	return m.Records[operationID], nil
}

func (m *MockOperationService) Cancel(ctx context.Context, operationID string) (*models.CancelResult, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, operationID)
	}
	record, ok := m.Records[operationID]
	if !ok {
		return &models.CancelResult{Cancelled: false, Message: "operation not found"}, nil
	}
	if record.Status.IsTerminal() {
		return &models.CancelResult{Cancelled: false, Message: "operation is already " + string(record.Status)}, nil
	}
	record.Status = models.OperationCancelled
	return &models.CancelResult{Cancelled: true, Message: "cancellation requested"}, nil
}

func (m *MockOperationService) List(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters, page, limit)
	}
	ops := make([]*models.OperationRecord, 0, len(m.Records))
	for _, r := range m.Records {
		ops = append(ops, r)
	}
	return &models.OperationPage{
		Operations: ops,
		Page:       page,
		Limit:      limit,
		TotalCount: len(ops),
		TotalPages: 1,
	}, nil
}
