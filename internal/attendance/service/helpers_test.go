package service

import (
	rostermodels "treehouse/internal/roster/models"
	"treehouse/pkg/domain"
)

func rosterHousehold(id domain.HouseholdID, lead domain.ParticipantID) rostermodels.Household {
	return rostermodels.Household{ID: id, Name: "Household " + lead.String(), LeadID: lead}
}
