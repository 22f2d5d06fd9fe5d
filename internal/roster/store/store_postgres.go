package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"treehouse/internal/roster/models"
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

const participantColumns = `id, name, email, date_of_birth, household_id, capabilities, notify_email`

func (s *PostgresStore) FindByID(ctx context.Context, id domain.ParticipantID) (*models.Participant, error) {
	row := s.querier(ctx).QueryRowContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = $1`, int64(id))
	p, err := scanParticipant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find participant: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]models.Participant, error) {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE id = ANY($1)`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.ParticipantID]models.Participant, len(ids))
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByCapability(ctx context.Context, cap domain.Capability) ([]models.Participant, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT `+participantColumns+` FROM participants WHERE $1 = ANY(capabilities)`, string(cap))
	if err != nil {
		return nil, fmt.Errorf("list participants by capability: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindHousehold(ctx context.Context, id domain.HouseholdID) (*models.Household, error) {
	var h models.Household
	var lead int64
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT id, name, lead_id FROM households WHERE id = $1`, int64(id)).
		Scan(&h.ID, &h.Name, &lead)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find household: %w", err)
	}
	h.LeadID = domain.ParticipantID(lead)
	return &h, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	var (
		p         models.Participant
		id        int64
		dob       sql.NullTime
		household sql.NullInt64
		caps      pq.StringArray
	)
	if err := row.Scan(&id, &p.Name, &p.Email, &dob, &household, &caps, &p.NotifyEmail); err != nil {
		return nil, err
	}
	p.ID = domain.ParticipantID(id)
	if dob.Valid {
		t := dob.Time.UTC().Truncate(24 * time.Hour)
		p.DateOfBirth = &t
	}
	if household.Valid {
		hid := domain.HouseholdID(household.Int64)
		p.HouseholdID = &hid
	}
	p.Capabilities = domain.CapabilitiesFromStrings(caps)
	return &p, nil
}
