package kiosk

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"treehouse/pkg/requestcontext"
)

const maxBodyBytes = 1 << 16

// Middleware verifies the kiosk signature on every request it wraps. The
// body is read for signature reconstruction and replaced so handlers can
// decode it again.
func Middleware(verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
				if err != nil {
					http.Error(w, `{"error":"failed to read request body"}`, http.StatusBadRequest)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			result := verifier.Verify(
				requestcontext.Now(ctx),
				r.Method,
				r.URL.Path,
				string(body),
				r.Header.Get(HeaderTimestamp),
				r.Header.Get(HeaderSignature),
			)
			if !result.OK {
				logger.WarnContext(ctx, "rejected kiosk request",
					"reason", result.Reason,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(result.Status)
				_, _ = w.Write([]byte(`{"error":"` + result.Reason + `"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithKiosk(ctx)))
		})
	}
}

// MiddlewareOrActor accepts either a valid kiosk signature or an existing
// actor session. Used by the attendance display endpoints, which both kiosks
// and logged-in staff poll.
func MiddlewareOrActor(verifier Verifier, actorMiddleware func(http.Handler) http.Handler, logger *slog.Logger) func(http.Handler) http.Handler {
	kioskMW := Middleware(verifier, logger)
	return func(next http.Handler) http.Handler {
		withActor := actorMiddleware(next)
		withKiosk := kioskMW(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(HeaderSignature) != "" || verifier.Open() {
				withKiosk.ServeHTTP(w, r)
				return
			}
			withActor.ServeHTTP(w, r)
		})
	}
}
