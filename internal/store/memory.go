package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and local
// development; the Postgres store is the production implementation.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record

	// CommitHook, when set, runs before a write group is applied. Returning
	// an error fails the whole group without touching any state.
	CommitHook func(ops []StagedOp) error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
	}
}

// Get retrieves one document by id
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := Clone(doc)
	out["id"] = id
	return out, nil
}

// Query returns every document whose field compares true against value,
// ordered by id for deterministic results.
func (s *MemoryStore) Query(ctx context.Context, collection, field string, op QueryOp, value interface{}) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var results []Record
	for _, id := range ids {
		got, ok := docs[id][field]
		if !ok {
			continue
		}
		if compare(got, op, value) {
			rec := Clone(docs[id])
			rec["id"] = id
			results = append(results, rec)
		}
	}
	return results, nil
}

// OpenWriteGroup starts a new atomic write group against this store
func (s *MemoryStore) OpenWriteGroup() WriteGroup {
	return &memoryGroup{store: s}
}

// AllocateID returns a fresh document id
func (s *MemoryStore) AllocateID(collection string) string {
	return uuid.New().String()
}

// Count returns the number of documents in a collection (test helper)
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Put writes one document directly, outside any write group (test seeding)
func (s *MemoryStore) Put(collection, id string, data Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Record)
	}
	s.collections[collection][id] = Clone(data)
}

type memoryGroup struct {
	store     *MemoryStore
	ops       []StagedOp
	committed bool
}

func (g *memoryGroup) Stage(kind StageKind, collection, id string, data Record) error {
	if len(g.ops) >= MaxGroupSize {
		return ErrGroupFull
	}
	g.ops = append(g.ops, StagedOp{Kind: kind, Collection: collection, ID: id, Data: Clone(data)})
	return nil
}

func (g *memoryGroup) Size() int {
	return len(g.ops)
}

// Commit applies every staged op under one lock acquisition. The hook runs
// first so an injected failure leaves the store untouched.
func (g *memoryGroup) Commit(ctx context.Context) error {
	if g.committed {
		return fmt.Errorf("write group already committed")
	}
	g.committed = true

	if err := ctx.Err(); err != nil {
		return err
	}
	if g.store.CommitHook != nil {
		if err := g.store.CommitHook(g.ops); err != nil {
			return err
		}
	}

	g.store.mu.Lock()
	defer g.store.mu.Unlock()

	for _, op := range g.ops {
		docs := g.store.collections[op.Collection]
		if docs == nil {
			docs = make(map[string]Record)
			g.store.collections[op.Collection] = docs
		}
		switch op.Kind {
		case StageCreate:
			docs[op.ID] = op.Data
		case StageUpdate:
			existing, ok := docs[op.ID]
			if !ok {
				docs[op.ID] = op.Data
				continue
			}
			merged := Clone(existing)
			for k, v := range op.Data {
				merged[k] = v
			}
			docs[op.ID] = merged
		case StageDelete:
			delete(docs, op.ID)
		}
	}
	return nil
}

// compare evaluates a query operator over the string renderings of both
// operands, matching the Postgres store's data->>field text comparison so
// the two implementations order values identically.
func compare(got interface{}, op QueryOp, want interface{}) bool {
	gs := fmt.Sprintf("%v", got)
	ws := fmt.Sprintf("%v", want)
	switch op {
	case OpEqual:
		return gs == ws
	case OpGreaterOrEqual:
		return gs >= ws
	case OpLessOrEqual:
		return gs <= ws
	}
	return false
}
