package models

import "treehouse/pkg/domain"

// Household groups related participants. The compliance monitor uses the
// affiliation to decide whether a present adult accompanies a minor.
type Household struct {
	ID     domain.HouseholdID   `json:"id"`
	Name   string               `json:"name"`
	LeadID domain.ParticipantID `json:"lead_id"`
}
