// Package models defines the attendance entities the ledger owns.
package models

import (
	"time"

	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
)

// Visit is one open-or-closed attendance interval for a participant.
//
// Invariants:
//   - Arrived is always set
//   - Departed nil means the participant is currently present
//   - At most one Visit per participant has a nil Departed at any time
//   - Departed, when set, is never before Arrived
type Visit struct {
	ID            domain.VisitID       `json:"id"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Arrived       time.Time            `json:"arrived"`
	Departed      *time.Time           `json:"departed,omitempty"`
	EventID       *domain.EventID      `json:"event_id,omitempty"`

	// Synthetic marks visits created by the reconciler for participants who
	// were marked attended without a badge record.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Open reports whether the participant is still present on this visit.
func (v *Visit) Open() bool {
	return v.Departed == nil
}

// Depart closes the visit at the given time.
func (v *Visit) Depart(at time.Time) {
	t := at
	v.Departed = &t
}

// Associate links the visit to an event.
func (v *Visit) Associate(eventID domain.EventID) {
	id := eventID
	v.EventID = &id
}

// Overlaps reports whether the visit interval touches [start, end]: it
// started before the window closed and either is still open or ended after
// the window opened.
func (v *Visit) Overlaps(start, end time.Time) bool {
	if v.Arrived.After(end) {
		return false
	}
	return v.Departed == nil || !v.Departed.Before(start)
}

// Validate checks interval ordering. Used by the manual-edit path, the only
// place arbitrary timestamps enter the ledger.
func (v *Visit) Validate() error {
	if v.Arrived.IsZero() {
		return domainerrors.New(domainerrors.CodeValidation, "arrival time is required")
	}
	if v.Departed != nil && !v.Departed.After(v.Arrived) {
		return domainerrors.New(domainerrors.CodeValidation, "departure time must be after arrival time")
	}
	return nil
}

// NewVisit opens a visit for a check-in at the given time.
func NewVisit(participantID domain.ParticipantID, arrived time.Time) *Visit {
	return &Visit{ParticipantID: participantID, Arrived: arrived}
}

// NewSyntheticVisit creates a closed, event-linked visit covering exactly
// the event window, representing attendance not captured by a badge scan.
func NewSyntheticVisit(participantID domain.ParticipantID, eventID domain.EventID, start, end time.Time) *Visit {
	v := &Visit{ParticipantID: participantID, Arrived: start, Synthetic: true}
	v.Depart(end)
	v.Associate(eventID)
	return v
}
