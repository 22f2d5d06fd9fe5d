package service

import (
	"context"
	"fmt"
	"time"

	"treehouse/internal/attendance/models"
	"treehouse/internal/notify"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/requestcontext"
)

// Evaluate applies the two-deep rule to a presence snapshot.
//
// A minor is unaccompanied when no present adult shares their household;
// a minor with no household on file is always unaccompanied. The rule is
// violated when at least one unaccompanied minor is present and fewer than
// two adults are present overall. A participant with no recorded date of
// birth counts as an adult.
func Evaluate(snapshot *models.PresenceSnapshot, at time.Time) models.ComplianceStatus {
	var status models.ComplianceStatus

	adultHouseholds := make(map[domain.HouseholdID]bool)
	for _, e := range snapshot.Entries {
		if e.Participant.IsMinor(at) {
			continue
		}
		status.AdultsPresent++
		if e.Participant.HouseholdID != nil {
			adultHouseholds[*e.Participant.HouseholdID] = true
		}
	}

	for _, e := range snapshot.Entries {
		if !e.Participant.IsMinor(at) {
			continue
		}
		status.MinorsPresent++
		if e.Participant.HouseholdID == nil || !adultHouseholds[*e.Participant.HouseholdID] {
			status.UnaccompaniedMinors++
		}
	}

	for _, e := range snapshot.Entries {
		if e.Participant.Keyholder() {
			status.KeyholdersPresent++
		}
	}

	status.Violation = status.UnaccompaniedMinors > 0 && status.AdultsPresent < 2
	status.KeyholderShortfall = len(snapshot.Entries) > 0 && status.KeyholdersPresent < 2
	return status
}

// CheckTwoDeep evaluates two-deep compliance against current presence and,
// on a violation, alerts the board. Alerts are debounced: an uninterrupted
// violation produces at most one alert per configured window, across all
// kiosks when the debouncer is Redis-backed.
func (s *Service) CheckTwoDeep(ctx context.Context) (*models.ComplianceStatus, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	status := Evaluate(snapshot, requestcontext.Now(ctx))
	if !status.Violation {
		return &status, nil
	}

	allowed, err := s.debounce.Allow(ctx, "two-deep", s.alertWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "alert debounce check failed, alerting anyway", "error", err)
		allowed = true
	}
	if allowed {
		s.alertBoard(ctx, status)
	}
	return &status, nil
}

// alertBoard notifies every board member of a live two-deep violation.
func (s *Service) alertBoard(ctx context.Context, status models.ComplianceStatus) {
	if s.metrics != nil {
		s.metrics.TwoDeepAlerts.Inc()
	}

	detail := fmt.Sprintf(
		"Two-deep leadership violation: %d unaccompanied minor(s) present with %d adult(s) on site.",
		status.UnaccompaniedMinors, status.AdultsPresent,
	)
	s.logger.WarnContext(ctx, "two-deep violation detected",
		"unaccompanied_minors", status.UnaccompaniedMinors,
		"adults_present", status.AdultsPresent,
	)

	s.auditor.Emit(ctx, audit.Record{
		ActorID:   audit.SystemActor,
		Action:    audit.ActionSystemNotify,
		TableName: "participants",
		NewData: audit.Marshal(map[string]any{
			"alert":               "TWO_DEEP_VIOLATION",
			"unaccompaniedMinors": status.UnaccompaniedMinors,
			"adultsPresent":       status.AdultsPresent,
		}),
	})

	board, err := s.roster.ListByCapability(ctx, domain.CapBoardMember)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not resolve board members for two-deep alert", "error", err)
		return
	}
	if len(board) == 0 {
		s.logger.WarnContext(ctx, "two-deep violation but no board members on roster")
		return
	}
	for _, member := range board {
		s.notifyAsync(ctx, notify.Message{
			ParticipantID: member.ID,
			EventType:     notify.EventTwoDeepViolation,
			Payload:       map[string]any{"name": member.Name, "message": detail},
		})
	}
}
