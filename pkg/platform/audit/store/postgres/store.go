// Package postgres persists audit records to the audit_log table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"treehouse/pkg/platform/audit"
	txcontext "treehouse/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts one audit record. Inserts are idempotent on the record ID
// so a worker retry cannot double-write.
func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	query := `
		INSERT INTO audit_log (id, time, actor_id, action, table_name, entity_id, secondary_entity_id, old_data, new_data, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), $8, $9, NULLIF($10, ''))
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID,
		rec.Time,
		int64(rec.ActorID),
		string(rec.Action),
		rec.TableName,
		rec.EntityID,
		rec.SecondaryEntityID,
		nullableJSON(rec.OldData),
		nullableJSON(rec.NewData),
		rec.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
