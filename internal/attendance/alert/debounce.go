// Package alert debounces compliance notifications so multiple kiosks and
// displays reporting the same violation produce at most one alert per
// window.
package alert

import (
	"context"
	"sync"
	"time"

	"treehouse/pkg/requestcontext"
)

// Debouncer answers "may this alert fire now?". Implementations must be safe
// for concurrent use.
type Debouncer interface {
	// Allow returns true at most once per window for a given key.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// MemoryDebouncer is the per-process fallback when Redis is not configured.
// Sufficient for a single-instance deployment; multiple instances need the
// Redis debouncer to share the window.
type MemoryDebouncer struct {
	mu   sync.Mutex
	last map[string]time.Time
}

func NewMemory() *MemoryDebouncer {
	return &MemoryDebouncer{last: make(map[string]time.Time)}
}

func (d *MemoryDebouncer) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := requestcontext.Now(ctx)
	if sent, ok := d.last[key]; ok && now.Sub(sent) < window {
		return false, nil
	}
	d.last[key] = now
	return true, nil
}
