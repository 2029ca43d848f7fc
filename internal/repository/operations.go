package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/store"
	"github.com/rs/zerolog"
)

// operationsCollection is the store collection holding job records
const operationsCollection = "operations"

// OperationRepository defines persistence for bulk job records
type OperationRepository interface {
	Create(ctx context.Context, record *models.OperationRecord) error
	Update(ctx context.Context, record *models.OperationRecord) error
	GetByID(ctx context.Context, id string) (*models.OperationRecord, error)
	List(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error)
	Cancel(ctx context.Context, id string) (*models.CancelResult, error)
}

// operationRepo persists operation records through the document store so
// job status survives a crash mid-run.
type operationRepo struct {
	store store.Store
	log   zerolog.Logger
}

// NewOperationRepo creates a new operation repository
func NewOperationRepo(st store.Store, log zerolog.Logger) OperationRepository {
	return &operationRepo{
		store: st,
		log:   log.With().Str("component", "operation_repo").Logger(),
	}
}

// Create persists a new operation record before any mutation runs
func (r *operationRepo) Create(ctx context.Context, record *models.OperationRecord) error {
	return r.write(ctx, store.StageCreate, record)
}

// Update overwrites the persisted record. Updates are serialized by the
// owning job, so no read-modify-write cycle is needed.
func (r *operationRepo) Update(ctx context.Context, record *models.OperationRecord) error {
	return r.write(ctx, store.StageUpdate, record)
}

func (r *operationRepo) write(ctx context.Context, kind store.StageKind, record *models.OperationRecord) error {
	doc, err := encodeOperation(record)
	if err != nil {
		return err
	}
	group := r.store.OpenWriteGroup()
	if err := group.Stage(kind, operationsCollection, record.ID, doc); err != nil {
		return err
	}
	if err := group.Commit(ctx); err != nil {
		return fmt.Errorf("persist operation %s: %w", record.ID, err)
	}
	return nil
}

// GetByID retrieves an operation record, or nil when none exists
func (r *operationRepo) GetByID(ctx context.Context, id string) (*models.OperationRecord, error) {
	doc, err := r.store.Get(ctx, operationsCollection, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOperation(doc)
}

// List returns one page of the filtered history, newest first by start time
func (r *operationRepo) List(ctx context.Context, filters models.OperationFilters, page, limit int) (*models.OperationPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	// Every record carries a start_time, so a >= "" range scan returns the
	// whole collection.
	docs, err := r.store.Query(ctx, operationsCollection, "start_time", store.OpGreaterOrEqual, "")
	if err != nil {
		return nil, err
	}

	var matched []*models.OperationRecord
	for _, doc := range docs {
		record, err := decodeOperation(doc)
		if err != nil {
			r.log.Error().Err(err).Msg("Skipping undecodable operation record")
			continue
		}
		if !matchesFilters(record, filters) {
			continue
		}
		matched = append(matched, record)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartTime.After(matched[j].StartTime)
	})

	totalCount := len(matched)
	totalPages := (totalCount + limit - 1) / limit

	start := (page - 1) * limit
	if start > totalCount {
		start = totalCount
	}
	end := start + limit
	if end > totalCount {
		end = totalCount
	}

	return &models.OperationPage{
		Operations: matched[start:end],
		Page:       page,
		Limit:      limit,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}, nil
}

// Cancel flips a non-terminal operation to cancelled. The executor observes
// the flag between chunks and stops scheduling further work.
func (r *operationRepo) Cancel(ctx context.Context, id string) (*models.CancelResult, error) {
	record, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &models.CancelResult{Cancelled: false, Message: "operation not found"}, nil
	}
	if record.Status.IsTerminal() {
		return &models.CancelResult{
			Cancelled: false,
			Message:   fmt.Sprintf("operation is already %s", record.Status),
		}, nil
	}

	record.Status = models.OperationCancelled
	if err := r.Update(ctx, record); err != nil {
		return nil, err
	}

	r.log.Info().Str("operation_id", id).Msg("Operation cancelled")
	return &models.CancelResult{Cancelled: true, Message: "cancellation requested"}, nil
}

func matchesFilters(record *models.OperationRecord, f models.OperationFilters) bool {
	if f.EntityType != "" && record.EntityType != f.EntityType {
		return false
	}
	if f.OperationKind != "" && record.OperationKind != f.OperationKind {
		return false
	}
	if f.Status != "" && record.Status != f.Status {
		return false
	}
	if f.CreatedBy != "" && record.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}

// encodeOperation round-trips the record through JSON into a store document
func encodeOperation(record *models.OperationRecord) (store.Record, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode operation %s: %w", record.ID, err)
	}
	var doc store.Record
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode operation %s: %w", record.ID, err)
	}
	delete(doc, "operation_id")
	doc["start_time"] = record.StartTime.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	return doc, nil
}

func decodeOperation(doc store.Record) (*models.OperationRecord, error) {
	id, _ := doc["id"].(string)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var record models.OperationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	record.ID = id
	return &record, nil
}
