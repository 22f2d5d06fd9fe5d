package notify

import (
	"context"
	"log/slog"
)

// Dispatcher queues messages and delivers them in the background, keeping
// delivery off the scan path. Enqueue never blocks: a full buffer drops the
// message with a log line, which is the contract for this side channel.
type Dispatcher struct {
	notifier Notifier
	inbox    chan Message
	logger   *slog.Logger
}

const defaultBuffer = 128

func NewDispatcher(notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: notifier,
		inbox:    make(chan Message, defaultBuffer),
		logger:   logger,
	}
}

// Enqueue hands a message to the background deliverer.
func (d *Dispatcher) Enqueue(_ context.Context, msg Message) {
	select {
	case d.inbox <- msg:
	default:
		d.logger.Warn("notification buffer full, dropping message",
			"participant_id", msg.ParticipantID,
			"event_type", msg.EventType,
		)
	}
}

// Run delivers queued messages until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.inbox:
			if err := d.notifier.Send(ctx, msg); err != nil {
				d.logger.Error("notification delivery failed",
					"error", err,
					"participant_id", msg.ParticipantID,
					"event_type", msg.EventType,
				)
			}
		}
	}
}
