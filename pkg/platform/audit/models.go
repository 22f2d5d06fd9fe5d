// Package audit defines the append-only audit record emitted by every
// mutating operation. The core only writes records; querying them is the
// concern of whatever consumes the store or the Kafka topic.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"treehouse/pkg/domain"
)

// Action names what happened. Values are stable: they end up in the audit
// table and on the Kafka topic.
type Action string

const (
	ActionCheckin             Action = "checkin"
	ActionCheckout            Action = "checkout"
	ActionManualCheckin       Action = "manual_checkin"
	ActionForcedCheckout      Action = "forced_checkout"
	ActionFacilityClosed      Action = "facility_closed"
	ActionVisitEdited         Action = "visit_edited"
	ActionAttendanceValidated Action = "attendance_validated"
	ActionSystemNotify        Action = "system_notify"
)

// SystemActor is the ActorID recorded for actions the system takes on its
// own, such as the debounced two-deep alert.
const SystemActor domain.ParticipantID = 0

// Record is one append-only audit entry. OldData/NewData carry JSON
// snapshots of the affected entity where a before/after matters (visit
// edits); they stay nil for plain transitions.
type Record struct {
	ID                string               `json:"id"`
	Time              time.Time            `json:"time"`
	ActorID           domain.ParticipantID `json:"actor_id"`
	Action            Action               `json:"action"`
	TableName         string               `json:"table_name"`
	EntityID          int64                `json:"entity_id"`
	SecondaryEntityID int64                `json:"secondary_entity_id,omitempty"`
	OldData           json.RawMessage      `json:"old_data,omitempty"`
	NewData           json.RawMessage      `json:"new_data,omitempty"`
	RequestID         string               `json:"request_id,omitempty"`
}

// Store persists audit records. Append-only: no read side on this
// interface.
type Store interface {
	Append(ctx context.Context, rec Record) error
}

// Marshal serializes v for an OldData/NewData snapshot, swallowing marshal
// errors into a nil payload; a lost snapshot must never fail the mutation
// that produced it.
func Marshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
