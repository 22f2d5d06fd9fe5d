package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Text output on stdout; swap the
// handler here if a deployment wants JSON.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
