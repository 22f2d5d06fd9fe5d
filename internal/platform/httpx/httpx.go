// Package httpx holds the JSON request/response helpers shared by the HTTP
// handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	domainerrors "treehouse/pkg/domain-errors"
)

const maxRequestBytes = 1 << 20

// Decode parses a JSON request body into dst.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domainerrors.New(domainerrors.CodeValidation, "malformed request body")
	}
	return nil
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error to its HTTP status and writes the standard
// error envelope. Unknown errors become an opaque 500; their detail goes to
// the log, not the client.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var derr *domainerrors.Error
	if !errors.As(err, &derr) {
		logger.Error("unhandled error", "error", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	status := domainerrors.ToHTTPStatus(derr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("internal error", "error", err)
		WriteJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	WriteJSON(w, status, map[string]string{"error": derr.Message})
}
