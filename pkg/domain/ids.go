// Package domain holds identifier types and capability definitions shared by
// every layer. Keeping them here avoids import cycles between stores,
// services, and transport.
package domain

import (
	"fmt"
	"strconv"
)

// Entity identifiers are typed wrappers over the numeric keys issued by the
// roster and ledger stores. The wrappers exist so a VisitID can never be
// passed where a ParticipantID is expected.
type (
	ParticipantID int64
	HouseholdID   int64
	VisitID       int64
	EventID       int64
	ProgramID     int64
)

func (id ParticipantID) IsZero() bool { return id == 0 }
func (id HouseholdID) IsZero() bool   { return id == 0 }
func (id VisitID) IsZero() bool       { return id == 0 }
func (id EventID) IsZero() bool       { return id == 0 }

func (id ParticipantID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id VisitID) String() string       { return strconv.FormatInt(int64(id), 10) }
func (id EventID) String() string       { return strconv.FormatInt(int64(id), 10) }

// ParseParticipantID parses a decimal participant ID from path or payload text.
func ParseParticipantID(s string) (ParticipantID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid participant id %q", s)
	}
	return ParticipantID(n), nil
}

// ParseEventID parses a decimal event ID from path or payload text.
func ParseEventID(s string) (EventID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid event id %q", s)
	}
	return EventID(n), nil
}

// ParseVisitID parses a decimal visit ID from path or payload text.
func ParseVisitID(s string) (VisitID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid visit id %q", s)
	}
	return VisitID(n), nil
}
