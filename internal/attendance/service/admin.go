package service

import (
	"context"
	"errors"
	"time"

	"treehouse/internal/attendance/models"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/sentinel"
	"treehouse/pkg/requestcontext"
)

// VisitEdit carries the fields an administrator may change on a visit. Nil
// pointers leave the field alone; the Set flags distinguish "not provided"
// from "explicitly cleared", so setting DepartedSet with a nil Departed
// reopens the visit.
type VisitEdit struct {
	Arrived     *time.Time
	Departed    *time.Time
	DepartedSet bool
	EventID     *domain.EventID
	EventIDSet  bool
}

// EditVisit applies an administrative correction to a visit. Elevated
// capability required. Reopening a visit is subject to the same
// one-open-visit-per-participant invariant as a check-in.
func (s *Service) EditVisit(ctx context.Context, visitID domain.VisitID, edit VisitEdit) (*models.Visit, error) {
	if !requestcontext.Capabilities(ctx).Elevated() {
		return nil, domainerrors.New(domainerrors.CodeForbidden, "visit edits require an elevated capability")
	}

	var before, after models.Visit
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		visit, err := s.ledger.FindVisit(txCtx, visitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return domainerrors.New(domainerrors.CodeNotFound, "visit not found")
			}
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load visit")
		}
		before = *visit

		if edit.Arrived != nil {
			visit.Arrived = *edit.Arrived
		}
		if edit.DepartedSet {
			visit.Departed = edit.Departed
		}
		if edit.EventIDSet {
			visit.EventID = edit.EventID
		}
		if err := visit.Validate(); err != nil {
			return err
		}

		reopening := before.Departed != nil && visit.Departed == nil
		if reopening {
			if _, err := s.ledger.FindOpenVisit(txCtx, visit.ParticipantID); err == nil {
				return domainerrors.New(domainerrors.CodeConflict,
					"participant already has an open visit")
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to look up open visit")
			}
		}

		if err := s.ledger.UpdateVisit(txCtx, visit); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return domainerrors.New(domainerrors.CodeConflict,
					"participant already has an open visit")
			}
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to update visit")
		}
		after = *visit
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Emit(ctx, audit.Record{
		ActorID:           requestcontext.ActorID(ctx),
		Action:            audit.ActionVisitEdited,
		TableName:         "visits",
		EntityID:          int64(visitID),
		SecondaryEntityID: int64(after.ParticipantID),
		OldData:           audit.Marshal(before),
		NewData:           audit.Marshal(after),
	})
	s.logger.InfoContext(ctx, "visit edited",
		"visit_id", visitID,
		"actor_id", requestcontext.ActorID(ctx),
	)
	return &after, nil
}
