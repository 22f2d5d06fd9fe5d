package service

import (
	"context"

	"treehouse/internal/attendance/models"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
)

// Snapshot returns everyone currently present, each open visit paired with
// its roster record. Derived from the open-visit set on every call.
func (s *Service) Snapshot(ctx context.Context) (*models.PresenceSnapshot, error) {
	visits, err := s.ledger.ListOpenVisits(ctx)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list open visits")
	}

	snapshot := &models.PresenceSnapshot{Entries: make([]models.PresenceEntry, 0, len(visits))}
	if len(visits) == 0 {
		return snapshot, nil
	}

	ids := make([]domain.ParticipantID, len(visits))
	for i, v := range visits {
		ids[i] = v.ParticipantID
	}
	participants, err := s.roster.FindByIDs(ctx, ids)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve participants")
	}

	for _, v := range visits {
		p, ok := participants[v.ParticipantID]
		if !ok {
			s.logger.WarnContext(ctx, "open visit references unknown participant",
				"visit_id", v.ID, "participant_id", v.ParticipantID)
			continue
		}
		snapshot.Entries = append(snapshot.Entries, models.PresenceEntry{Visit: v, Participant: p})
	}
	return snapshot, nil
}

// RecentVisits lists the most recently started visits, open or closed,
// newest first.
func (s *Service) RecentVisits(ctx context.Context, limit int) ([]models.Visit, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	visits, err := s.ledger.ListRecent(ctx, limit)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list visits")
	}
	return visits, nil
}
