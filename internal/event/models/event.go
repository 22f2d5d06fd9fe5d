// Package models defines scheduled events and their RSVPs.
package models

import (
	"time"

	"treehouse/pkg/domain"
)

// Event is one scheduled program session with a fixed time window.
type Event struct {
	ID           domain.EventID       `json:"id"`
	Name         string               `json:"name"`
	Start        time.Time            `json:"start"`
	End          time.Time            `json:"end"`
	ProgramID    *domain.ProgramID    `json:"program_id,omitempty"`
	LeadMentorID domain.ParticipantID `json:"lead_mentor_id"`
}

// RSVPStatus is a participant's declared intent for an event.
type RSVPStatus string

const (
	RSVPAttending    RSVPStatus = "ATTENDING"
	RSVPNotAttending RSVPStatus = "NOT_ATTENDING"
	RSVPMaybe        RSVPStatus = "MAYBE"
	RSVPNoResponse   RSVPStatus = "NO_RESPONSE"
)

// RSVP is one participant's response to one event.
type RSVP struct {
	EventID       domain.EventID       `json:"event_id"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Status        RSVPStatus           `json:"status"`
}

// AttendanceOutcome reconciles one participant's RSVP against their actual
// presence during the event window.
type AttendanceOutcome string

const (
	// OutcomeAttended: RSVP'd attending and a badge visit covered the event.
	OutcomeAttended AttendanceOutcome = "ATTENDED"
	// OutcomeSynthetic: marked attended with no badge record, so a synthetic
	// visit was created.
	OutcomeSynthetic AttendanceOutcome = "ATTENDED_SYNTHETIC"
	// OutcomeNoShow: RSVP'd attending but never marked present.
	OutcomeNoShow AttendanceOutcome = "NO_SHOW"
	// OutcomeWalkIn: present at the event without an attending RSVP.
	OutcomeWalkIn AttendanceOutcome = "WALK_IN"
)

// ReportEntry is one participant's line in the reconciliation report.
type ReportEntry struct {
	ParticipantID domain.ParticipantID `json:"participant_id"`
	RSVP          RSVPStatus           `json:"rsvp"`
	Outcome       AttendanceOutcome    `json:"outcome"`
	VisitID       *domain.VisitID      `json:"visit_id,omitempty"`
}

// Report summarizes RSVP-versus-presence for one event.
type Report struct {
	EventID   domain.EventID `json:"event_id"`
	Entries   []ReportEntry  `json:"entries"`
	Attended  int            `json:"attended"`
	Synthetic int            `json:"synthetic"`
	NoShows   int            `json:"no_shows"`
	WalkIns   int            `json:"walk_ins"`
}
