// Package worker drains the audit recorder into one or more sinks in the
// background, keeping persistence off the request path.
package worker

import (
	"context"
	"log/slog"

	"treehouse/pkg/platform/audit"
)

// Worker consumes audit records from the recorder channel and appends them
// to each configured sink. A failing sink is logged and skipped; audit
// persistence must never wedge the pipeline for the other sinks.
type Worker struct {
	inbox  <-chan audit.Record
	sinks  []audit.Store
	logger *slog.Logger
}

func New(inbox <-chan audit.Record, logger *slog.Logger, sinks ...audit.Store) *Worker {
	return &Worker{inbox: inbox, sinks: sinks, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Flush whatever is already queued before exiting.
			for {
				select {
				case rec := <-w.inbox:
					w.append(context.Background(), rec)
				default:
					return ctx.Err()
				}
			}
		case rec := <-w.inbox:
			w.append(ctx, rec)
		}
	}
}

func (w *Worker) append(ctx context.Context, rec audit.Record) {
	for _, sink := range w.sinks {
		if err := sink.Append(ctx, rec); err != nil {
			w.logger.Error("audit append failed",
				"error", err,
				"action", rec.Action,
				"entity_id", rec.EntityID,
			)
		}
	}
}
