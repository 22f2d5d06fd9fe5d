package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"treehouse/internal/attendance/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
	txcontext "treehouse/pkg/platform/tx"
)

// PostgresLedger persists visits and raw badge events. Mutating methods
// participate in the transaction carried by the context; the scan processor
// wraps its read-modify-write in a SERIALIZABLE transaction via tx.Runner.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

type dbHandle interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresLedger) handle(ctx context.Context) dbHandle {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresLedger) RecordScan(ctx context.Context, scan models.RawScanEvent) error {
	// Raw badge events are recorded outside the transition transaction so
	// the log stays complete even when the transition is rejected.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raw_scan_events (participant_id, time, location) VALUES ($1, $2, $3)`,
		int64(scan.ParticipantID), scan.Time, scan.Location)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

const visitColumns = `id, participant_id, arrived, departed, event_id, synthetic`

func (s *PostgresLedger) FindOpenVisit(ctx context.Context, participantID domain.ParticipantID) (*models.Visit, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		 WHERE participant_id = $1 AND departed IS NULL
		 ORDER BY arrived DESC LIMIT 1`, int64(participantID))
	return scanVisitRow(row, "find open visit")
}

func (s *PostgresLedger) CreateVisit(ctx context.Context, visit *models.Visit) error {
	var departed any
	if visit.Departed != nil {
		departed = *visit.Departed
	}
	var eventID any
	if visit.EventID != nil {
		eventID = int64(*visit.EventID)
	}
	err := s.handle(ctx).QueryRowContext(ctx,
		`INSERT INTO visits (participant_id, arrived, departed, event_id, synthetic)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		int64(visit.ParticipantID), visit.Arrived, departed, eventID, visit.Synthetic).
		Scan(&visit.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

func (s *PostgresLedger) UpdateVisit(ctx context.Context, visit *models.Visit) error {
	var departed any
	if visit.Departed != nil {
		departed = *visit.Departed
	}
	var eventID any
	if visit.EventID != nil {
		eventID = int64(*visit.EventID)
	}
	res, err := s.handle(ctx).ExecContext(ctx,
		`UPDATE visits SET arrived = $2, departed = $3, event_id = $4 WHERE id = $1`,
		int64(visit.ID), visit.Arrived, departed, eventID)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update visit: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresLedger) FindVisit(ctx context.Context, id domain.VisitID) (*models.Visit, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE id = $1`, int64(id))
	return scanVisitRow(row, "find visit")
}

func (s *PostgresLedger) ListOpenVisits(ctx context.Context) ([]models.Visit, error) {
	return s.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE departed IS NULL ORDER BY arrived DESC`)
}

func (s *PostgresLedger) CloseAllOpen(ctx context.Context, departed time.Time) ([]models.Visit, error) {
	rows, err := s.handle(ctx).QueryContext(ctx,
		`UPDATE visits SET departed = $1 WHERE departed IS NULL
		 RETURNING `+visitColumns, departed)
	if err != nil {
		return nil, fmt.Errorf("close all open visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func (s *PostgresLedger) FindReconcilable(ctx context.Context, participantID domain.ParticipantID, start, end time.Time) (*models.Visit, error) {
	row := s.handle(ctx).QueryRowContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		 WHERE participant_id = $1
		   AND event_id IS NULL
		   AND arrived <= $3
		   AND (departed IS NULL OR departed >= $2)
		 ORDER BY arrived ASC LIMIT 1`,
		int64(participantID), start, end)
	return scanVisitRow(row, "find reconcilable visit")
}

func (s *PostgresLedger) ListByEvent(ctx context.Context, eventID domain.EventID) ([]models.Visit, error) {
	return s.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE event_id = $1 ORDER BY id ASC`, int64(eventID))
}

func (s *PostgresLedger) ListRecent(ctx context.Context, limit int) ([]models.Visit, error) {
	return s.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM visits ORDER BY arrived DESC LIMIT $1`, limit)
}

func (s *PostgresLedger) queryVisits(ctx context.Context, query string, args ...any) ([]models.Visit, error) {
	rows, err := s.handle(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

func collectVisits(rows *sql.Rows) ([]models.Visit, error) {
	var out []models.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// isUniqueViolation detects the partial unique index on open visits, which
// is the database-level backstop for one-open-visit-per-participant.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisitRow(row *sql.Row, op string) (*models.Visit, error) {
	v, err := scanVisit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

func scanVisit(row rowScanner) (*models.Visit, error) {
	var (
		v           models.Visit
		id          int64
		participant int64
		departed    sql.NullTime
		eventID     sql.NullInt64
	)
	if err := row.Scan(&id, &participant, &v.Arrived, &departed, &eventID, &v.Synthetic); err != nil {
		return nil, err
	}
	v.ID = domain.VisitID(id)
	v.ParticipantID = domain.ParticipantID(participant)
	if departed.Valid {
		t := departed.Time
		v.Departed = &t
	}
	if eventID.Valid {
		eid := domain.EventID(eventID.Int64)
		v.EventID = &eid
	}
	return &v, nil
}
