package store

import (
	"context"
	"errors"
)

// Record is one loosely-typed document in a collection. The "id" key is
// populated on read; writes carry the id separately.
type Record map[string]interface{}

// ErrNotFound is returned by Get when no document exists for the id
var ErrNotFound = errors.New("record not found")

// QueryOp is a comparison operator for Query. Operands compare as text over
// their string renderings in every implementation; range scans therefore
// need fixed-width values to order chronologically or numerically.
type QueryOp string

const (
	OpEqual          QueryOp = "=="
	OpGreaterOrEqual QueryOp = ">="
	OpLessOrEqual    QueryOp = "<="
)

// StageKind is the mutation verb of one staged write
type StageKind string

const (
	StageCreate StageKind = "create"
	StageUpdate StageKind = "update"
	StageDelete StageKind = "delete"
)

// MaxGroupSize is the store-enforced bound on items per atomic write group
const MaxGroupSize = 500

// ErrGroupFull is returned by Stage once a group reaches MaxGroupSize
var ErrGroupFull = errors.New("write group is full")

// StagedOp is one pending mutation inside a write group
type StagedOp struct {
	Kind       StageKind
	Collection string
	ID         string
	Data       Record
}

// WriteGroup accumulates mutations and commits them as one all-or-nothing
// unit. A group is single-use: after Commit it must be discarded.
type WriteGroup interface {
	Stage(kind StageKind, collection, id string, data Record) error
	Commit(ctx context.Context) error
	Size() int
}

// Store is the transactional document store the engine writes through.
// Implementations must make Commit atomic across every staged item.
type Store interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Query(ctx context.Context, collection, field string, op QueryOp, value interface{}) ([]Record, error)
	OpenWriteGroup() WriteGroup
	AllocateID(collection string) string
}

// Clone returns a shallow-safe copy of a record so callers can mutate the
// result without aliasing store state.
func Clone(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
