// Package notify is the fire-and-forget notification side channel. Delivery
// failures are logged and never surface to the caller or roll back the state
// transition that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"treehouse/pkg/domain"
)

// EventType names what happened to the participant.
type EventType string

const (
	EventCheckin             EventType = "CHECKIN"
	EventCheckout            EventType = "CHECKOUT"
	EventForcedCheckout      EventType = "FORCED_CHECKOUT"
	EventAttendanceValidated EventType = "ATTENDANCE_VALIDATED"
	EventTwoDeepViolation    EventType = "TWO_DEEP_VIOLATION"
)

// Message is the fixed payload contract with the delivery layer.
type Message struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
	EventType     EventType            `json:"eventType"`
	Payload       map[string]any       `json:"payload"`
}

// Notifier delivers one message. Implementations own transport selection
// (email, SMS, chat); this core only hands over the payload.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes would-be notifications to the log. Stands in until a
// real delivery integration is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	subject, body := Compose(msg)
	n.logger.Info("notification",
		"participant_id", msg.ParticipantID,
		"event_type", msg.EventType,
		"subject", subject,
		"body", body,
	)
	return nil
}

// Compose builds the subject and body for a message.
func Compose(msg Message) (subject, body string) {
	name, _ := msg.Payload["name"].(string)
	if name == "" {
		name = "there"
	}
	switch msg.EventType {
	case EventCheckin:
		return "Checked in", fmt.Sprintf("Hi %s, you are checked in at the facility.", name)
	case EventCheckout:
		return "Checked out", fmt.Sprintf("Hi %s, you are checked out. See you next time!", name)
	case EventForcedCheckout:
		return "Facility closed", fmt.Sprintf("Hi %s, the facility closed and you were checked out automatically.", name)
	case EventAttendanceValidated:
		eventName, _ := msg.Payload["eventName"].(string)
		return "Attendance verified", fmt.Sprintf("Hi %s, your attendance at %s has been recorded.", name, eventName)
	case EventTwoDeepViolation:
		detail, _ := msg.Payload["message"].(string)
		return "Two-deep compliance warning", detail
	default:
		return "Treehouse notification", fmt.Sprintf("System action: %s", msg.EventType)
	}
}
