package models

import (
	"time"
)

// OperationStatus represents the lifecycle state of a bulk job
type OperationStatus string

const (
	OperationRunning   OperationStatus = "running"
	OperationCompleted OperationStatus = "completed"
	OperationFailed    OperationStatus = "failed"
	OperationCancelled OperationStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions
func (s OperationStatus) IsTerminal() bool {
	return s == OperationCompleted || s == OperationFailed || s == OperationCancelled
}

// OperationError records one failed row. Index is the 1-based position in
// the original input; -1 marks a job-level error.
type OperationError struct {
	Index   int    `json:"index"`
	ItemID  string `json:"item_id,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// OperationRecord is the persisted description of one bulk job. It is owned
// exclusively by the executing job for its lifetime; status queries read it,
// only the owner writes it.
type OperationRecord struct {
	ID             string           `json:"operation_id"`
	Status         OperationStatus  `json:"status"`
	OperationKind  OperationKind    `json:"operation"`
	EntityType     EntityType       `json:"entity_type"`
	TotalItems     int              `json:"total_items"`
	ProcessedItems int              `json:"processed_items"`
	SuccessCount   int              `json:"success_count"`
	FailureCount   int              `json:"failure_count"`
	Errors         []OperationError `json:"errors,omitempty"`
	Warnings       []string         `json:"warnings,omitempty"`
	StartTime      time.Time        `json:"start_time"`
	EndTime        *time.Time       `json:"end_time,omitempty"`
	CreatedBy      string           `json:"created_by,omitempty"`
}

// Disposition classifies the outcome of one input row
type Disposition string

const (
	DispositionCreatedNew       Disposition = "createdNew"
	DispositionUpdatedExisting  Disposition = "updatedExisting"
	DispositionSkippedDuplicate Disposition = "skippedDuplicate"
	DispositionValidationFailed Disposition = "validationFailed"
	DispositionWriteFailed      Disposition = "writeFailed"
)

// RowOutcome is the transient per-row result produced by the executor
type RowOutcome struct {
	Index       int         `json:"index"`
	ItemID      string      `json:"item_id,omitempty"`
	Disposition Disposition `json:"disposition"`
	Message     string      `json:"message,omitempty"`
}

// Summary aggregates a finished job for the caller
type Summary struct {
	Operation       OperationKind `json:"operation"`
	EntityType      EntityType    `json:"entity_type"`
	TotalItems      int           `json:"total_items"`
	SuccessCount    int           `json:"success_count"`
	FailureCount    int           `json:"failure_count"`
	SuccessRate     float64       `json:"success_rate"`
	ExecutionTimeMs int64         `json:"execution_time_ms"`
}

// OperationResult is returned to the caller once the job finishes
type OperationResult struct {
	Success      bool             `json:"success"`
	OperationID  string           `json:"operation_id"`
	TotalItems   int              `json:"total_items"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Errors       []OperationError `json:"errors,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	Outcomes     []RowOutcome     `json:"outcomes,omitempty"`
	Summary      *Summary         `json:"summary,omitempty"`
}

// DuplicateAction records what happened to a row that matched an existing
// record during import.
type DuplicateAction string

const (
	DuplicateSkipped DuplicateAction = "skipped"
	DuplicateUpdated DuplicateAction = "updated"
)

// Duplicate describes one import row that collided with an existing record
type Duplicate struct {
	Row        int             `json:"row"`
	ExistingID string          `json:"existing_id"`
	Action     DuplicateAction `json:"action"`
}

// ImportResult extends OperationResult with the duplicate report
type ImportResult struct {
	OperationResult
	Duplicates []Duplicate `json:"duplicates,omitempty"`
}

// OperationFilters narrows a history listing
type OperationFilters struct {
	EntityType    EntityType      `json:"entity_type,omitempty"`
	OperationKind OperationKind   `json:"operation,omitempty"`
	Status        OperationStatus `json:"status,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
}

// OperationPage is one page of the newest-first operation history
type OperationPage struct {
	Operations []*OperationRecord `json:"operations"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalCount int                `json:"total_count"`
	TotalPages int                `json:"total_pages"`
}

// CancelResult reports the outcome of a cancellation request
type CancelResult struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}
