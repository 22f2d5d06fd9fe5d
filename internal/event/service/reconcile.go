package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	attendancemodels "treehouse/internal/attendance/models"
	"treehouse/internal/event/models"
	"treehouse/internal/notify"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/sentinel"
	"treehouse/pkg/requestcontext"
)

// ValidateAttendance records that the listed participants actually attended
// the event. Each participant either gets their overlapping badge visit
// associated with the event, or, when no badge record exists, a synthetic
// visit spanning the event window. The whole batch commits or none of it
// does.
//
// Only the event's lead mentor or an elevated actor may validate.
func (s *Service) ValidateAttendance(ctx context.Context, eventID domain.EventID, attended []domain.ParticipantID) ([]attendancemodels.Visit, error) {
	ctx, span := s.tracer.Start(ctx, "event.ValidateAttendance",
		trace.WithAttributes(
			attribute.Int64("event.id", int64(eventID)),
			attribute.Int("participants", len(attended)),
		))
	defer span.End()

	if len(attended) == 0 {
		return nil, domainerrors.New(domainerrors.CodeValidation, "attended participant list is empty")
	}

	event, err := s.events.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "event not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load event")
	}

	if err := s.authorizeValidate(ctx, event); err != nil {
		return nil, err
	}

	participants, err := s.roster.FindByIDs(ctx, attended)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve participants")
	}
	for _, id := range attended {
		if _, ok := participants[id]; !ok {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "participant "+id.String()+" not found")
		}
	}

	var visits []attendancemodels.Visit
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		visits = visits[:0]
		for _, id := range attended {
			visit, err := s.reconcileOne(txCtx, event, id)
			if err != nil {
				return err
			}
			visits = append(visits, *visit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	synthetic := 0
	visitIDs := make([]int64, len(visits))
	for i, v := range visits {
		visitIDs[i] = int64(v.ID)
		if v.Synthetic {
			synthetic++
		}
	}
	s.auditor.Emit(ctx, audit.Record{
		ActorID:   requestcontext.ActorID(ctx),
		Action:    audit.ActionAttendanceValidated,
		TableName: "events",
		EntityID:  int64(eventID),
		NewData: audit.Marshal(map[string]any{
			"visitIds":  visitIDs,
			"synthetic": synthetic,
		}),
	})
	s.logger.InfoContext(ctx, "event attendance validated",
		"event_id", eventID,
		"participants", len(attended),
		"synthetic_visits", synthetic,
	)

	for _, id := range attended {
		p := participants[id]
		s.notifyAsync(ctx, notify.Message{
			ParticipantID: id,
			EventType:     notify.EventAttendanceValidated,
			Payload:       map[string]any{"name": p.Name, "eventName": event.Name},
		})
	}
	return visits, nil
}

// reconcileOne links one participant's real visit to the event, or creates a
// synthetic one when no badge record overlaps the event window.
func (s *Service) reconcileOne(ctx context.Context, event *models.Event, participantID domain.ParticipantID) (*attendancemodels.Visit, error) {
	visit, err := s.ledger.FindReconcilable(ctx, participantID, event.Start, event.End)
	switch {
	case err == nil:
		visit.Associate(event.ID)
		if err := s.ledger.UpdateVisit(ctx, visit); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to associate visit")
		}
		return visit, nil
	case errors.Is(err, sentinel.ErrNotFound):
		synthetic := attendancemodels.NewSyntheticVisit(participantID, event.ID, event.Start, event.End)
		if err := s.ledger.CreateVisit(ctx, synthetic); err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to create synthetic visit")
		}
		return synthetic, nil
	default:
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to look up reconcilable visit")
	}
}

// Report compares RSVPs with recorded presence for an event.
func (s *Service) Report(ctx context.Context, eventID domain.EventID) (*models.Report, error) {
	event, err := s.events.FindEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.New(domainerrors.CodeNotFound, "event not found")
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to load event")
	}

	if err := s.authorizeValidate(ctx, event); err != nil {
		return nil, err
	}

	rsvps, err := s.events.ListRSVPs(ctx, eventID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list rsvps")
	}
	visits, err := s.ledger.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list event visits")
	}

	visitByParticipant := make(map[domain.ParticipantID]attendancemodels.Visit, len(visits))
	for _, v := range visits {
		visitByParticipant[v.ParticipantID] = v
	}

	report := &models.Report{EventID: eventID}
	seen := make(map[domain.ParticipantID]bool, len(rsvps))

	for _, rsvp := range rsvps {
		seen[rsvp.ParticipantID] = true
		entry := models.ReportEntry{ParticipantID: rsvp.ParticipantID, RSVP: rsvp.Status}

		if visit, ok := visitByParticipant[rsvp.ParticipantID]; ok {
			id := visit.ID
			entry.VisitID = &id
			if visit.Synthetic {
				entry.Outcome = models.OutcomeSynthetic
				report.Synthetic++
			} else {
				entry.Outcome = models.OutcomeAttended
			}
			report.Attended++
		} else if rsvp.Status == models.RSVPAttending {
			entry.Outcome = models.OutcomeNoShow
			report.NoShows++
		} else {
			continue
		}
		report.Entries = append(report.Entries, entry)
	}

	for _, v := range visits {
		if seen[v.ParticipantID] {
			continue
		}
		id := v.ID
		if v.Synthetic {
			report.Synthetic++
		}
		report.WalkIns++
		report.Entries = append(report.Entries, models.ReportEntry{
			ParticipantID: v.ParticipantID,
			RSVP:          models.RSVPNoResponse,
			Outcome:       models.OutcomeWalkIn,
			VisitID:       &id,
		})
	}
	return report, nil
}

// authorizeValidate restricts validation and reporting to the event's lead
// mentor or an elevated actor.
func (s *Service) authorizeValidate(ctx context.Context, event *models.Event) error {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsZero() {
		return domainerrors.New(domainerrors.CodeUnauthorized, "authentication required")
	}
	if actorID == event.LeadMentorID || requestcontext.Capabilities(ctx).Elevated() {
		return nil
	}
	return domainerrors.New(domainerrors.CodeForbidden, "only the event's lead mentor may manage its attendance")
}
