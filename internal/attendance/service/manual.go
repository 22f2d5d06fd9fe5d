package service

import (
	"context"
	"errors"

	"treehouse/internal/attendance/models"
	"treehouse/internal/notify"
	rostermodels "treehouse/internal/roster/models"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/sentinel"
	"treehouse/pkg/requestcontext"
)

// ManualCheckIn checks in a participant who did not badge in. It reuses the
// check-in path (including the facility-open invariant) but, unlike a badge
// scan, never flips an already-present participant to checked-out: a target
// with an open visit is rejected outright.
//
// The caller must be the target, the target's household lead, or hold an
// elevated capability.
func (s *Service) ManualCheckIn(ctx context.Context, targetID domain.ParticipantID) (*models.Visit, error) {
	target, err := s.roster.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "participant not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load participant")
	}

	if err := s.authorizeActOn(ctx, target); err != nil {
		return nil, err
	}

	var result *models.TransitionResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.FindOpenVisit(txCtx, target.ID); err == nil {
			return domainerrors.New(domainerrors.CodeConflict, "participant is already checked in")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to look up open visit")
		}
		result, err = s.checkin(txCtx, target)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		ActorID:           requestcontext.ActorID(ctx),
		Action:            audit.ActionManualCheckin,
		TableName:         "visits",
		EntityID:          int64(result.Visit.ID),
		SecondaryEntityID: int64(target.ID),
	})
	s.notifyParticipantAndLead(ctx, target, notify.EventCheckin, map[string]any{})
	s.countScan(models.TransitionCheckin)
	return result.Visit, nil
}

// ForceCheckout closes one visit on the target's behalf. The checkout runs
// through the same path as a badge scan, so removing the last open
// keyholder this way still closes the facility and cascades.
func (s *Service) ForceCheckout(ctx context.Context, visitID domain.VisitID) (*models.TransitionResult, error) {
	visit, err := s.ledger.FindVisit(ctx, visitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "visit not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load visit")
	}

	target, err := s.roster.FindByID(ctx, visit.ParticipantID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load participant")
	}

	if err := s.authorizeActOn(ctx, target); err != nil {
		return nil, err
	}

	var result *models.TransitionResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.ledger.FindVisit(txCtx, visitID)
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load visit")
		}
		if !current.Open() {
			return domainerrors.New(domainerrors.CodeConflict, "visit is already closed")
		}
		result, err = s.checkout(txCtx, target, current)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		ActorID:           requestcontext.ActorID(ctx),
		Action:            audit.ActionForcedCheckout,
		TableName:         "visits",
		EntityID:          int64(visitID),
		SecondaryEntityID: int64(target.ID),
	})
	s.notifyParticipantAndLead(ctx, target, notify.EventCheckout, map[string]any{})
	s.countScan(models.TransitionCheckout)
	return result, nil
}

// authorizeActOn enforces who may check a participant in or out manually:
// the participant themselves, their household lead, or an elevated actor.
func (s *Service) authorizeActOn(ctx context.Context, target *rostermodels.Participant) error {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsZero() {
		return domainerrors.New(domainerrors.CodeUnauthorized, "authentication required")
	}
	if actorID == target.ID {
		return nil
	}
	if requestcontext.Capabilities(ctx).Elevated() {
		return nil
	}
	if target.HouseholdID != nil {
		household, err := s.roster.FindHousehold(ctx, *target.HouseholdID)
		if err == nil && household.LeadID == actorID {
			return nil
		}
	}
	return domainerrors.New(domainerrors.CodeForbidden, "not authorized to manage this participant's attendance")
}
