package engine

import (
	"context"
	"fmt"

	"github.com/booking-admin-bulk-api/internal/models"
	"github.com/booking-admin-bulk-api/internal/store"
)

// Deduplicator decides create-vs-update by looking up an existing record on
// the matching field.
type Deduplicator struct {
	store store.Store
}

// NewDeduplicator creates a deduplicator over the given store
func NewDeduplicator(st store.Store) *Deduplicator {
	return &Deduplicator{store: st}
}

// Find returns the first existing record whose matching field equals the
// incoming record's value. A row without the matching field never matches.
func (d *Deduplicator) Find(ctx context.Context, record models.RawRecord, entityType models.EntityType, matchingField string) (store.Record, bool, error) {
	field := entityType.MatchField(matchingField)

	value, ok := record[field]
	if !ok || value == nil {
		return nil, false, nil
	}
	if s, isStr := value.(string); isStr && s == "" {
		return nil, false, nil
	}

	matches, err := d.store.Query(ctx, entityType.Collection(), field, store.OpEqual, value)
	if err != nil {
		return nil, false, fmt.Errorf("dedup lookup on %s.%s: %w", entityType.Collection(), field, err)
	}
	if len(matches) == 0 {
		return nil, false, nil
	}
	return matches[0], true, nil
}
