package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"treehouse/internal/attendance/models"
	"treehouse/internal/notify"
	rostermodels "treehouse/internal/roster/models"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/sentinel"
	"treehouse/pkg/requestcontext"
)

// ProcessScan converts one authenticated badge scan into a check-in or
// check-out.
//
// The raw badge event is recorded unconditionally before the transition is
// attempted, so the badge log stays complete even when the transition is
// rejected. The transition itself (lookup, decide, mutate, possible cascade)
// runs as one atomic unit: two concurrent scans for the same participant, or
// a scan racing the facility-closure cascade, can never produce a second
// open visit or an inconsistent keyholder count.
func (s *Service) ProcessScan(ctx context.Context, participantID domain.ParticipantID, location string) (*models.TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.ProcessScan",
		trace.WithAttributes(attribute.Int64("participant.id", int64(participantID))))
	defer span.End()

	now := requestcontext.Now(ctx)
	if location == "" {
		location = s.location
	}

	participant, err := s.roster.FindByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.countRejection("participant_not_found")
			return nil, domainerrors.New(domainerrors.CodeNotFound, "participant not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load participant")
	}

	if err := s.ledger.RecordScan(ctx, models.RawScanEvent{
		ParticipantID: participant.ID,
		Time:          now,
		Location:      location,
	}); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to record badge event")
	}

	var result *models.TransitionResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		open, err := s.ledger.FindOpenVisit(txCtx, participant.ID)
		switch {
		case err == nil:
			result, err = s.checkout(txCtx, participant, open)
			return err
		case errors.Is(err, sentinel.ErrNotFound):
			result, err = s.checkin(txCtx, participant)
			return err
		default:
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to look up open visit")
		}
	})
	if err != nil {
		if domainerrors.HasCode(err, domainerrors.CodeInvariantViolation) {
			s.countRejection("facility_closed")
		}
		return nil, err
	}

	s.finishTransition(ctx, participant, result)
	return result, nil
}

// checkin opens a visit, subject to the facility-open invariant: the
// facility is open iff at least one keyholder has an open visit, and a
// keyholder checking in is precisely the action that can open it.
func (s *Service) checkin(ctx context.Context, participant *rostermodels.Participant) (*models.TransitionResult, error) {
	if !participant.Keyholder() {
		open, err := s.facilityOpen(ctx)
		if err != nil {
			return nil, err
		}
		if !open {
			return nil, domainerrors.New(domainerrors.CodeInvariantViolation,
				"facility is closed; a keyholder must check in first")
		}
	}

	visit := models.NewVisit(participant.ID, requestcontext.Now(ctx))
	if err := s.ledger.CreateVisit(ctx, visit); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, domainerrors.New(domainerrors.CodeConflict, "participant already has an open visit")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to create visit")
	}

	return &models.TransitionResult{Type: models.TransitionCheckin, Visit: visit}, nil
}

// checkout closes the open visit. When the departing participant is the last
// open keyholder, every other open visit is force-closed with the same
// departure timestamp and the facility is closed, all within the caller's
// transaction.
func (s *Service) checkout(ctx context.Context, participant *rostermodels.Participant, open *models.Visit) (*models.TransitionResult, error) {
	now := requestcontext.Now(ctx)
	open.Depart(now)
	if err := s.ledger.UpdateVisit(ctx, open); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to close visit")
	}

	result := &models.TransitionResult{Type: models.TransitionCheckout, Visit: open}

	if participant.Keyholder() {
		stillOpen, err := s.facilityOpen(ctx)
		if err != nil {
			return nil, err
		}
		if !stillOpen {
			closed, err := s.ledger.CloseAllOpen(ctx, now)
			if err != nil {
				return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to close remaining visits")
			}
			result.FacilityClosed = true
			result.ForcedCheckouts = closed
		}
	}

	return result, nil
}

// facilityOpen derives the open/closed state from the open-visit set. Always
// computed, never cached: the stored visits are the single source of truth.
func (s *Service) facilityOpen(ctx context.Context) (bool, error) {
	visits, err := s.ledger.ListOpenVisits(ctx)
	if err != nil {
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list open visits")
	}
	if len(visits) == 0 {
		return false, nil
	}

	ids := make([]domain.ParticipantID, len(visits))
	for i, v := range visits {
		ids[i] = v.ParticipantID
	}
	participants, err := s.roster.FindByIDs(ctx, ids)
	if err != nil {
		return false, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve participants")
	}
	for _, v := range visits {
		if p, ok := participants[v.ParticipantID]; ok && p.Keyholder() {
			return true, nil
		}
	}
	return false, nil
}

// finishTransition emits the audit record, notifications, and metrics for a
// committed transition. All of it is outside the transactional boundary; a
// failure here never rolls back the scan.
func (s *Service) finishTransition(ctx context.Context, participant *rostermodels.Participant, result *models.TransitionResult) {
	s.countScan(result.Type)

	switch result.Type {
	case models.TransitionCheckin:
		s.auditor.Emit(ctx, audit.Record{
			ActorID:   participant.ID,
			Action:    audit.ActionCheckin,
			TableName: "visits",
			EntityID:  int64(result.Visit.ID),
		})
		s.notifyParticipantAndLead(ctx, participant, notify.EventCheckin, map[string]any{})

	case models.TransitionCheckout:
		rec := audit.Record{
			ActorID:   participant.ID,
			Action:    audit.ActionCheckout,
			TableName: "visits",
			EntityID:  int64(result.Visit.ID),
		}
		if result.FacilityClosed {
			rec.Action = audit.ActionFacilityClosed
			forced := make([]int64, len(result.ForcedCheckouts))
			for i, v := range result.ForcedCheckouts {
				forced[i] = int64(v.ID)
			}
			rec.NewData = audit.Marshal(map[string]any{"forcedVisitIds": forced})
		}
		s.auditor.Emit(ctx, rec)
		s.notifyParticipantAndLead(ctx, participant, notify.EventCheckout, map[string]any{})

		if result.FacilityClosed {
			if s.metrics != nil {
				s.metrics.FacilityClosures.Inc()
				s.metrics.ForcedCheckouts.Add(float64(len(result.ForcedCheckouts)))
			}
			s.notifyForced(ctx, result.ForcedCheckouts)
			s.logger.InfoContext(ctx, "facility closed, remaining visitors checked out",
				"keyholder_id", participant.ID,
				"forced_checkouts", len(result.ForcedCheckouts),
			)
		}
	}
}

func (s *Service) notifyForced(ctx context.Context, closed []models.Visit) {
	if len(closed) == 0 {
		return
	}
	ids := make([]domain.ParticipantID, len(closed))
	for i, v := range closed {
		ids[i] = v.ParticipantID
	}
	participants, err := s.roster.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "could not resolve forced-checkout participants", "error", err)
		return
	}
	for _, v := range closed {
		if p, ok := participants[v.ParticipantID]; ok {
			s.notifyParticipantAndLead(ctx, &p, notify.EventForcedCheckout, map[string]any{})
		}
	}
}
