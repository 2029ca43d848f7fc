package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/booking-admin-bulk-api/internal/importer"
	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/repository"
	"github.com/booking-admin-bulk-api/internal/store"
	"github.com/booking-admin-bulk-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Request is one bulk job: a single operation kind applied to an ordered
// list of already parsed and mapped records.
type Request struct {
	OperationKind models.OperationKind
	EntityType    models.EntityType
	Items         []models.RawRecord
	Options       models.Options
	CreatedBy     string
}

// Result is the executor's outcome, including the duplicate report the
// import path exposes.
type Result struct {
	*models.OperationResult
	Duplicates []models.Duplicate
}

// Executor drives the chunked write pipeline: validate, dedup, stage,
// commit one atomic group per chunk, and keep the persisted operation
// record current after every commit.
type Executor struct {
	store     store.Store
	ops       repository.OperationRepository
	validator *validation.Validator
	dedup     *Deduplicator
	log       zerolog.Logger
}

// NewExecutor creates an executor over the given store and status repository
func NewExecutor(st store.Store, ops repository.OperationRepository, log zerolog.Logger) *Executor {
	return &Executor{
		store:     st,
		ops:       ops,
		validator: validation.NewValidator(),
		dedup:     NewDeduplicator(st),
		log:       log.With().Str("component", "executor").Logger(),
	}
}

// stagedRow tracks one row staged into the open write group so a commit
// failure can retroactively fail it. outcomeIdx points into the outcomes
// slice, which may be reallocated by later appends.
type stagedRow struct {
	outcomeIdx int
	duplicate  *models.Duplicate
	matchKey   string
}

// Execute runs one bulk job to completion. Fatal request errors return
// before any operation record is persisted; everything after that is
// captured in the record and the returned result.
func (e *Executor) Execute(ctx context.Context, req *Request) (*Result, error) {
	if err := e.checkRequest(req); err != nil {
		return nil, err
	}
	req.Options.Normalize()
	if req.Options.ChunkSize > store.MaxGroupSize {
		req.Options.ChunkSize = store.MaxGroupSize
	}

	startTime := time.Now()
	record := &models.OperationRecord{
		ID:            NewOperationID(),
		Status:        models.OperationRunning,
		OperationKind: req.OperationKind,
		EntityType:    req.EntityType,
		TotalItems:    len(req.Items),
		StartTime:     startTime,
		CreatedBy:     req.CreatedBy,
	}

	// The running record goes in before any mutation so a crash mid-job
	// still leaves a discoverable, if stalled, record.
	if err := e.ops.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create operation record: %w", err)
	}

	e.log.Info().
		Str("operation_id", record.ID).
		Str("operation", string(req.OperationKind)).
		Str("entity_type", string(req.EntityType)).
		Int("total_items", record.TotalItems).
		Int("chunk_size", req.Options.ChunkSize).
		Msg("Bulk operation started")

	outcomes := make([]models.RowOutcome, 0, len(req.Items))
	var duplicates []models.Duplicate
	var jobErr error
	aborted := false

	// In-run dedup index: matching-field values already routed to a write,
	// keyed to the id they landed on. Later rows consult it before the
	// store so rows sharing a chunk see earlier rows exactly as rows in a
	// later chunk would, keeping dispositions independent of chunk size.
	seen := make(map[string]string)

	chunks := chunkItems(req.Items, req.Options.ChunkSize)
	base := 0

chunkLoop:
	for _, chunk := range chunks {
		// Cancellation is cooperative: the flag is polled between chunks
		// only, never mid-chunk.
		if e.refreshCancelled(ctx, record) {
			e.log.Info().Str("operation_id", record.ID).Msg("Cancellation observed, stopping before next chunk")
			break chunkLoop
		}

		group := e.store.OpenWriteGroup()
		var staged []stagedRow
		processedInChunk := 0

		for i, item := range chunk {
			index := base + i + 1
			processedInChunk++

			if verdict := e.validateRow(req, item); !verdict.IsValid {
				if req.Options.SkipValidation {
					for _, msg := range verdict.Errors {
						record.Warnings = append(record.Warnings, fmt.Sprintf("row %d: %s", index, msg))
					}
				} else {
					record.Errors = append(record.Errors, models.OperationError{
						Index:   index,
						Message: joinErrors(verdict.Errors),
						Code:    "validation_failed",
					})
					record.FailureCount++
					outcomes = append(outcomes, models.RowOutcome{
						Index:       index,
						Disposition: models.DispositionValidationFailed,
						Message:     joinErrors(verdict.Errors),
					})
					if !req.Options.ContinueOnError {
						aborted = true
						break
					}
					continue
				}
			}

			route, err := e.routeRow(ctx, req, item, index, seen)
			if err != nil {
				record.Errors = append(record.Errors, models.OperationError{
					Index:   index,
					Message: err.Error(),
					Code:    "write_failed",
				})
				record.FailureCount++
				outcomes = append(outcomes, models.RowOutcome{
					Index:       index,
					Disposition: models.DispositionWriteFailed,
					Message:     err.Error(),
				})
				if !req.Options.ContinueOnError {
					aborted = true
					break
				}
				continue
			}

			if route.skipped {
				outcomes = append(outcomes, models.RowOutcome{
					Index:       index,
					ItemID:      route.itemID,
					Disposition: models.DispositionSkippedDuplicate,
				})
				duplicates = append(duplicates, models.Duplicate{
					Row:        index,
					ExistingID: route.itemID,
					Action:     models.DuplicateSkipped,
				})
				continue
			}

			if err := group.Stage(route.stageKind, req.EntityType.Collection(), route.itemID, route.data); err != nil {
				record.Errors = append(record.Errors, models.OperationError{
					Index:   index,
					ItemID:  route.itemID,
					Message: err.Error(),
					Code:    "write_failed",
				})
				record.FailureCount++
				outcomes = append(outcomes, models.RowOutcome{
					Index:       index,
					ItemID:      route.itemID,
					Disposition: models.DispositionWriteFailed,
					Message:     err.Error(),
				})
				if !req.Options.ContinueOnError {
					aborted = true
					break
				}
				continue
			}

			outcomes = append(outcomes, models.RowOutcome{
				Index:       index,
				ItemID:      route.itemID,
				Disposition: route.disposition,
			})
			staged = append(staged, stagedRow{
				outcomeIdx: len(outcomes) - 1,
				duplicate:  route.duplicate,
				matchKey:   route.matchKey,
			})
		}

		// One commit per chunk. The store promises all-or-nothing, so a
		// commit failure fails every staged row in this chunk.
		if group.Size() > 0 {
			if err := group.Commit(ctx); err != nil {
				e.log.Error().Err(err).
					Str("operation_id", record.ID).
					Int("staged", group.Size()).
					Msg("Write group commit failed")
				for _, s := range staged {
					outcome := &outcomes[s.outcomeIdx]
					outcome.Disposition = models.DispositionWriteFailed
					outcome.Message = err.Error()
					record.Errors = append(record.Errors, models.OperationError{
						Index:   outcome.Index,
						ItemID:  outcome.ItemID,
						Message: err.Error(),
						Code:    "write_group_failed",
					})
					record.FailureCount++
					// The write never landed, so later rows must not treat
					// its matching-field value as taken.
					if s.matchKey != "" {
						delete(seen, s.matchKey)
					}
				}
				if !req.Options.ContinueOnError {
					aborted = true
				}
			} else {
				record.SuccessCount += len(staged)
				for _, s := range staged {
					if s.duplicate != nil {
						duplicates = append(duplicates, *s.duplicate)
					}
				}
			}
		}

		record.ProcessedItems += processedInChunk

		// Re-read the cancel flag before writing progress so the update
		// never clobbers a cancellation that landed during the chunk.
		e.refreshCancelled(ctx, record)

		// Progress must be observable by a concurrent status query after
		// every chunk.
		if err := e.ops.Update(ctx, record); err != nil {
			jobErr = fmt.Errorf("update operation record: %w", err)
			break chunkLoop
		}

		base += len(chunk)
		if aborted || record.Status == models.OperationCancelled {
			break chunkLoop
		}
	}

	return e.finalize(ctx, req, record, outcomes, duplicates, startTime, aborted, jobErr), nil
}

// refreshCancelled re-reads the persisted record and adopts a cancellation
// flipped by a concurrent Cancel call.
func (e *Executor) refreshCancelled(ctx context.Context, record *models.OperationRecord) bool {
	current, err := e.ops.GetByID(ctx, record.ID)
	if err != nil || current == nil {
		return false
	}
	if current.Status == models.OperationCancelled {
		record.Status = models.OperationCancelled
		return true
	}
	return false
}

// finalize settles the terminal status, persists the record one last time
// and shapes the caller-facing result.
func (e *Executor) finalize(ctx context.Context, req *Request, record *models.OperationRecord, outcomes []models.RowOutcome, duplicates []models.Duplicate, startTime time.Time, aborted bool, jobErr error) *Result {
	switch {
	case jobErr != nil:
		record.Status = models.OperationFailed
		record.Errors = append(record.Errors, models.OperationError{
			Index:   -1,
			Message: jobErr.Error(),
			Code:    "job_failed",
		})
	case record.Status == models.OperationCancelled:
		// already terminal
	case aborted:
		record.Status = models.OperationFailed
	default:
		record.Status = models.OperationCompleted
	}

	endTime := time.Now()
	record.EndTime = &endTime

	if err := e.ops.Update(ctx, record); err != nil {
		e.log.Error().Err(err).Str("operation_id", record.ID).Msg("Failed to persist final operation record")
	}

	executionMs := endTime.Sub(startTime).Milliseconds()
	var successRate float64
	if record.TotalItems > 0 {
		successRate = float64(record.SuccessCount) / float64(record.TotalItems)
	}

	success := record.FailureCount == 0 || req.Options.ContinueOnError

	sort.Slice(duplicates, func(i, j int) bool { return duplicates[i].Row < duplicates[j].Row })

	e.log.Info().
		Str("operation_id", record.ID).
		Str("status", string(record.Status)).
		Int("processed", record.ProcessedItems).
		Int("successful", record.SuccessCount).
		Int("failed", record.FailureCount).
		Int64("execution_ms", executionMs).
		Msg("Bulk operation finished")

	return &Result{
		OperationResult: &models.OperationResult{
			Success:      success,
			OperationID:  record.ID,
			TotalItems:   record.TotalItems,
			SuccessCount: record.SuccessCount,
			FailureCount: record.FailureCount,
			Errors:       record.Errors,
			Warnings:     record.Warnings,
			Outcomes:     outcomes,
			Summary: &models.Summary{
				Operation:       req.OperationKind,
				EntityType:      req.EntityType,
				TotalItems:      record.TotalItems,
				SuccessCount:    record.SuccessCount,
				FailureCount:    record.FailureCount,
				SuccessRate:     successRate,
				ExecutionTimeMs: executionMs,
			},
		},
		Duplicates: duplicates,
	}
}

// routedRow is the staging decision for one input row
type routedRow struct {
	stageKind   store.StageKind
	itemID      string
	data        store.Record
	disposition models.Disposition
	duplicate   *models.Duplicate
	matchKey    string
	skipped     bool
}

// routeRow turns one row into a staged mutation per the operation kind.
// Create runs the duplicate check against the in-run index first, then the
// store; update, delete and statusChange address an existing record by id,
// falling back to the matching field.
func (e *Executor) routeRow(ctx context.Context, req *Request, item models.RawRecord, index int, seen map[string]string) (*routedRow, error) {
	switch req.OperationKind {
	case models.OpCreate:
		key, hasKey := matchValue(req, item)
		existingID := ""
		found := false
		if hasKey {
			existingID, found = seen[key]
		}
		if !found {
			existing, storeFound, err := e.dedup.Find(ctx, item, req.EntityType, req.Options.MatchingField)
			if err != nil {
				return nil, err
			}
			if storeFound {
				existingID, _ = existing["id"].(string)
				found = true
			}
		}
		if found {
			if !req.Options.UpdateExisting {
				return &routedRow{itemID: existingID, skipped: true}, nil
			}
			if hasKey {
				seen[key] = existingID
			}
			return &routedRow{
				stageKind:   store.StageUpdate,
				itemID:      existingID,
				data:        writeData(item),
				disposition: models.DispositionUpdatedExisting,
				duplicate:   &models.Duplicate{Row: index, ExistingID: existingID, Action: models.DuplicateUpdated},
				matchKey:    key,
			}, nil
		}
		id := e.store.AllocateID(req.EntityType.Collection())
		if hasKey {
			seen[key] = id
		}
		return &routedRow{
			stageKind:   store.StageCreate,
			itemID:      id,
			data:        writeData(item),
			disposition: models.DispositionCreatedNew,
			matchKey:    key,
		}, nil

	case models.OpUpdate:
		id, err := e.resolveID(ctx, req, item)
		if err != nil {
			return nil, err
		}
		return &routedRow{
			stageKind:   store.StageUpdate,
			itemID:      id,
			data:        writeData(item),
			disposition: models.DispositionUpdatedExisting,
		}, nil

	case models.OpDelete:
		id, err := e.resolveID(ctx, req, item)
		if err != nil {
			return nil, err
		}
		return &routedRow{
			stageKind:   store.StageDelete,
			itemID:      id,
			disposition: models.DispositionUpdatedExisting,
		}, nil

	case models.OpStatusChange:
		id, err := e.resolveID(ctx, req, item)
		if err != nil {
			return nil, err
		}
		status, ok := item["status"].(string)
		if !ok || status == "" {
			return nil, fmt.Errorf("statusChange item has no status")
		}
		return &routedRow{
			stageKind:   store.StageUpdate,
			itemID:      id,
			data:        store.Record{"status": status},
			disposition: models.DispositionUpdatedExisting,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedOperation, req.OperationKind)
}

// matchValue renders the row's matching-field value as the in-run dedup
// key. Rows without the field never collide.
func matchValue(req *Request, item models.RawRecord) (string, bool) {
	field := req.EntityType.MatchField(req.Options.MatchingField)
	value, ok := item[field]
	if !ok || value == nil {
		return "", false
	}
	if s, isStr := value.(string); isStr && s == "" {
		return "", false
	}
	return fmt.Sprintf("%v", value), true
}

// resolveID returns the target record id for update/delete/statusChange,
// falling back to a matching-field lookup when the row has no id.
func (e *Executor) resolveID(ctx context.Context, req *Request, item models.RawRecord) (string, error) {
	if id, ok := item["id"].(string); ok && id != "" {
		return id, nil
	}

	existing, found, err := e.dedup.Find(ctx, item, req.EntityType, req.Options.MatchingField)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("item has no id and no record matches %q", req.EntityType.MatchField(req.Options.MatchingField))
	}
	id, _ := existing["id"].(string)
	return id, nil
}

// validateRow applies the entity rule set. Delete and statusChange rows are
// bare references, not full records, so only create and update are
// validated.
func (e *Executor) validateRow(req *Request, item models.RawRecord) validation.Result {
	if req.OperationKind == models.OpDelete || req.OperationKind == models.OpStatusChange {
		return validation.Result{IsValid: true}
	}
	return e.validator.Validate(req.EntityType, item)
}

// checkRequest applies the fatal taxonomy before the job starts
func (e *Executor) checkRequest(req *Request) error {
	if len(req.Items) == 0 {
		return models.ErrEmptyRequest
	}
	if !req.EntityType.IsValid() {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedEntityType, req.EntityType)
	}
	if !models.ValidOperationKinds[req.OperationKind] {
		return fmt.Errorf("%w: %q", models.ErrUnsupportedOperation, req.OperationKind)
	}
	if req.OperationKind == models.OpStatusChange && !req.EntityType.HasStatusField() {
		return fmt.Errorf("%w: %s records carry no status field", models.ErrUnsupportedOperation, req.EntityType)
	}
	return nil
}

// writeData strips absent values and the id key before staging so missing
// fields never land in the store as explicit nulls.
func writeData(item models.RawRecord) store.Record {
	stripped := importer.StripAbsent(item)
	delete(stripped, "id")
	return store.Record(stripped)
}

// chunkItems splits items into consecutive groups of size, preserving order
func chunkItems(items []models.RawRecord, size int) [][]models.RawRecord {
	var chunks [][]models.RawRecord
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

func joinErrors(errs []string) string {
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e
	}
	return msg
}

// NewOperationID allocates a time-derived id with a random suffix
func NewOperationID() string {
	return fmt.Sprintf("%s-%s",
		time.Now().UTC().Format("20060102T150405"),
		uuid.New().String()[:8])
}
