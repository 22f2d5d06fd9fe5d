package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"treehouse/pkg/requestcontext"
)

// Emitter is what services depend on to record audit entries.
type Emitter interface {
	Emit(ctx context.Context, rec Record)
}

// Recorder buffers records on a channel for the worker to drain. Emit never
// blocks the request path: if the buffer is full the record is dropped and
// the drop is logged.
type Recorder struct {
	inbox  chan Record
	logger *slog.Logger
}

const defaultBuffer = 256

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		inbox:  make(chan Record, defaultBuffer),
		logger: logger,
	}
}

// Emit stamps the record with an ID, time, and request correlation ID, then
// queues it for persistence.
func (r *Recorder) Emit(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Time.IsZero() {
		rec.Time = requestcontext.Now(ctx)
	}
	if rec.RequestID == "" {
		rec.RequestID = requestcontext.RequestID(ctx)
	}

	select {
	case r.inbox <- rec:
	default:
		r.logger.Error("audit buffer full, dropping record",
			"action", rec.Action,
			"table", rec.TableName,
			"entity_id", rec.EntityID,
		)
	}
}

// Inbox exposes the channel for the worker.
func (r *Recorder) Inbox() <-chan Record { return r.inbox }

// Drain waits briefly for queued records to be consumed during shutdown.
func (r *Recorder) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for len(r.inbox) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

// NopEmitter discards records. Used by tests that don't assert on audit.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Record) {}
