package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"treehouse/internal/event/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
	txcontext "treehouse/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) FindEvent(ctx context.Context, id domain.EventID) (*models.Event, error) {
	var (
		e       models.Event
		eid     int64
		program sql.NullInt64
		lead    int64
	)
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, name, start_at, end_at, program_id, lead_mentor_id FROM events WHERE id = $1`,
		int64(id)).
		Scan(&eid, &e.Name, &e.Start, &e.End, &program, &lead)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	e.ID = domain.EventID(eid)
	if program.Valid {
		pid := domain.ProgramID(program.Int64)
		e.ProgramID = &pid
	}
	e.LeadMentorID = domain.ParticipantID(lead)
	return &e, nil
}

func (s *PostgresStore) ListRSVPs(ctx context.Context, eventID domain.EventID) ([]models.RSVP, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT event_id, participant_id, status FROM rsvps WHERE event_id = $1 ORDER BY participant_id`,
		int64(eventID))
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	var out []models.RSVP
	for rows.Next() {
		var (
			r      models.RSVP
			eid    int64
			pid    int64
			status string
		)
		if err := rows.Scan(&eid, &pid, &status); err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		r.EventID = domain.EventID(eid)
		r.ParticipantID = domain.ParticipantID(pid)
		r.Status = models.RSVPStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}
