package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"treehouse/internal/platform/session"
	"treehouse/pkg/requestcontext"
)

// RequireActor authenticates staff requests from a Bearer session token and
// injects the actor ID and capability set into the context. Authorization
// decisions (which capability a given operation needs) stay in the services,
// which also know about household relationships.
func RequireActor(sessions *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized: missing session token",
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "missing or invalid Authorization header")
				return
			}

			claims, err := sessions.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized: invalid session token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx = requestcontext.WithActorID(ctx, claims.ActorID)
			ctx = requestcontext.WithCapabilities(ctx, claims.Capabilities)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
