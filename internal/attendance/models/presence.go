package models

import (
	rostermodels "treehouse/internal/roster/models"
)

// PresenceEntry pairs an open visit with its participant's roster record.
type PresenceEntry struct {
	Visit       Visit                    `json:"visit"`
	Participant rostermodels.Participant `json:"participant"`
}

// PresenceSnapshot is the set of all open visits at a point in time. It is
// derived on demand and never cached across requests: facility state changes
// asynchronously from multiple kiosks, and the open/closed question is
// always answered from the open-visit set, never from a stored flag.
type PresenceSnapshot struct {
	Entries []PresenceEntry `json:"entries"`
}

// FacilityOpen reports whether at least one open visit belongs to a
// keyholder.
func (s *PresenceSnapshot) FacilityOpen() bool {
	for _, e := range s.Entries {
		if e.Participant.Keyholder() {
			return true
		}
	}
	return false
}

// ComplianceStatus is the two-deep monitor's output.
type ComplianceStatus struct {
	// Violation holds iff at least one unaccompanied minor is present and
	// fewer than two adults are present overall.
	Violation bool `json:"violation"`

	UnaccompaniedMinors int `json:"unaccompaniedMinors"`
	AdultsPresent       int `json:"adultsPresent"`
	MinorsPresent       int `json:"minorsPresent"`
	KeyholdersPresent   int `json:"keyholdersPresent"`

	// KeyholderShortfall is a non-blocking warning: fewer than two
	// keyholders present.
	KeyholderShortfall bool `json:"keyholderShortfall"`
}
