// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them. Keeping
// the package free of net/http lets services import only what they need.
package requestcontext

import (
	"context"
	"time"

	"treehouse/pkg/domain"
)

type (
	actorIDKey      struct{}
	capabilitiesKey struct{}
	requestIDKey    struct{}
	requestTimeKey  struct{}
	kioskKey        struct{}
)

// ActorID retrieves the authenticated staff actor from the context.
// Returns zero if the request was not actor-authenticated (e.g. kiosk scans).
func ActorID(ctx context.Context) domain.ParticipantID {
	if id, ok := ctx.Value(actorIDKey{}).(domain.ParticipantID); ok {
		return id
	}
	return 0
}

// WithActorID injects the authenticated actor into the context.
func WithActorID(ctx context.Context, id domain.ParticipantID) context.Context {
	return context.WithValue(ctx, actorIDKey{}, id)
}

// Capabilities retrieves the actor's capability set from the context.
func Capabilities(ctx context.Context) domain.Capabilities {
	if caps, ok := ctx.Value(capabilitiesKey{}).(domain.Capabilities); ok {
		return caps
	}
	return nil
}

// WithCapabilities injects the actor's capability set into the context.
func WithCapabilities(ctx context.Context, caps domain.Capabilities) context.Context {
	return context.WithValue(ctx, capabilitiesKey{}, caps)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Kiosk reports whether the request was authenticated as a kiosk rather than
// a staff session.
func Kiosk(ctx context.Context) bool {
	v, ok := ctx.Value(kioskKey{}).(bool)
	return ok && v
}

// WithKiosk marks the context as belonging to a kiosk-authenticated request.
func WithKiosk(ctx context.Context) context.Context {
	return context.WithValue(ctx, kioskKey{}, true)
}

// Now retrieves the request-scoped time from context, so every timestamp
// recorded during one request agrees. Falls back to time.Now for non-HTTP
// contexts (workers, CLI, tests that don't care).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware and by tests that need a fixed clock.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
