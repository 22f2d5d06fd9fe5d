// Package models defines the roster entities the attendance core reads.
// Participant and household lifecycles are managed elsewhere; this core
// never mutates them.
package models

import (
	"time"

	"treehouse/pkg/domain"
)

const adultAge = 18

// Participant is a person on the facility roster.
type Participant struct {
	ID           domain.ParticipantID `json:"id"`
	Name         string               `json:"name"`
	Email        string               `json:"email"`
	DateOfBirth  *time.Time           `json:"date_of_birth,omitempty"`
	HouseholdID  *domain.HouseholdID  `json:"household_id,omitempty"`
	Capabilities domain.Capabilities  `json:"capabilities"`

	// NotifyEmail is the participant's notification preference; email is on
	// by default.
	NotifyEmail bool `json:"notify_email"`
}

// IsMinor reports whether the participant is under 18 at the given time.
// A missing date of birth counts as adult; the compliance monitor documents
// that choice.
func (p *Participant) IsMinor(at time.Time) bool {
	if p.DateOfBirth == nil {
		return false
	}
	return Age(*p.DateOfBirth, at) < adultAge
}

// AgeKnown reports whether a date of birth is on file.
func (p *Participant) AgeKnown() bool {
	return p.DateOfBirth != nil
}

// Keyholder reports whether the participant may open and supervise the
// facility.
func (p *Participant) Keyholder() bool {
	return p.Capabilities.Has(domain.CapKeyholder)
}

// SameHousehold reports whether both participants belong to the same known
// household. Participants without a household never match.
func (p *Participant) SameHousehold(other *Participant) bool {
	if p.HouseholdID == nil || other.HouseholdID == nil {
		return false
	}
	return *p.HouseholdID == *other.HouseholdID
}

// Age computes full years between dob and at.
func Age(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	anniversary := dob.AddDate(years, 0, 0)
	if anniversary.After(at) {
		years--
	}
	return years
}
