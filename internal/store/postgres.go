package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/booking-admin-bulk-api/internal/database"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// PostgresStore persists documents in a single JSONB table keyed by
// (collection, id). One write group maps to one transaction.
type PostgresStore struct {
	db  *database.DB
	log zerolog.Logger
}

// NewPostgresStore creates a Postgres-backed document store
func NewPostgresStore(db *database.DB, log zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
	}
}

// Get retrieves one document by id
func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Record, error) {
	query := `SELECT data FROM documents WHERE collection = $1 AND id = $2`

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	rec["id"] = id
	return rec, nil
}

// Query returns documents whose field compares true against value, ordered
// by id. Comparison happens on the JSONB text projection.
func (s *PostgresStore) Query(ctx context.Context, collection, field string, op QueryOp, value interface{}) ([]Record, error) {
	var cmp string
	switch op {
	case OpEqual:
		cmp = "="
	case OpGreaterOrEqual:
		cmp = ">="
	case OpLessOrEqual:
		cmp = "<="
	default:
		return nil, fmt.Errorf("unsupported query op %q", op)
	}

	query := fmt.Sprintf(
		`SELECT id, data FROM documents WHERE collection = $1 AND data->>$2 %s $3 ORDER BY id`, cmp)

	rows, err := s.db.QueryContext(ctx, query, collection, field, fmt.Sprintf("%v", value))
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", collection, field, err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Skipping undecodable document")
			continue
		}
		rec["id"] = id
		results = append(results, rec)
	}
	return results, rows.Err()
}

// OpenWriteGroup starts a new atomic write group
func (s *PostgresStore) OpenWriteGroup() WriteGroup {
	return &postgresGroup{store: s}
}

// AllocateID returns a fresh document id
func (s *PostgresStore) AllocateID(collection string) string {
	return uuid.New().String()
}

type postgresGroup struct {
	store     *PostgresStore
	ops       []StagedOp
	committed bool
}

func (g *postgresGroup) Stage(kind StageKind, collection, id string, data Record) error {
	if len(g.ops) >= MaxGroupSize {
		return ErrGroupFull
	}
	g.ops = append(g.ops, StagedOp{Kind: kind, Collection: collection, ID: id, Data: data})
	return nil
}

func (g *postgresGroup) Size() int {
	return len(g.ops)
}

// Commit applies every staged op inside one transaction. Payloads are
// serialized up front so a marshal failure rejects the group before any
// statement runs.
func (g *postgresGroup) Commit(ctx context.Context) error {
	if g.committed {
		return fmt.Errorf("write group already committed")
	}
	g.committed = true
	if len(g.ops) == 0 {
		return nil
	}

	payloads := make([][]byte, len(g.ops))
	var marshalErrs *multierror.Error
	for i, op := range g.ops {
		if op.Kind == StageDelete {
			continue
		}
		raw, err := json.Marshal(op.Data)
		if err != nil {
			marshalErrs = multierror.Append(marshalErrs, fmt.Errorf("stage %s/%s: %w", op.Collection, op.ID, err))
			continue
		}
		payloads[i] = raw
	}
	if err := marshalErrs.ErrorOrNil(); err != nil {
		return err
	}

	tx, err := g.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write group: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, op := range g.ops {
		switch op.Kind {
		case StageCreate, StageUpdate:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO documents (collection, id, data, updated_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (collection, id) DO UPDATE SET
					data = documents.data || EXCLUDED.data,
					updated_at = EXCLUDED.updated_at
			`, op.Collection, op.ID, payloads[i], now)
		case StageDelete:
			_, err = tx.ExecContext(ctx,
				`DELETE FROM documents WHERE collection = $1 AND id = $2`,
				op.Collection, op.ID)
		}
		if err != nil {
			return fmt.Errorf("write group %s %s/%s: %w", op.Kind, op.Collection, op.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write group: %w", err)
	}
	return nil
}
