package models

import (
	"time"

	"treehouse/pkg/domain"
)

// RawScanEvent is one append-only badge log entry. Recorded once per
// accepted scan, whether or not the resulting transition succeeds, so the
// raw badge log is a complete audit trail independent of the visit ledger.
// Never mutated or deleted.
type RawScanEvent struct {
	ID            int64                `json:"id"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Time          time.Time            `json:"time"`
	Location      string               `json:"location"`
}

// TransitionType says which way a scan flipped the participant's state.
type TransitionType string

const (
	TransitionCheckin  TransitionType = "checkin"
	TransitionCheckout TransitionType = "checkout"
)

// TransitionResult is what a processed scan reports back to the kiosk.
type TransitionResult struct {
	Type  TransitionType `json:"type"`
	Visit *Visit         `json:"visit"`

	// FacilityClosed is set on the checkout that removed the last keyholder
	// and cascaded everyone else out.
	FacilityClosed bool `json:"facilityClosed"`

	// ForcedCheckouts lists the other visits closed by the cascade.
	ForcedCheckouts []Visit `json:"forcedCheckouts,omitempty"`
}
