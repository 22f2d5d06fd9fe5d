// Package handler exposes event attendance reconciliation over HTTP.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"treehouse/internal/event/service"
	"treehouse/internal/platform/httpx"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the event routes behind the staff-session middleware.
func (h *Handler) Register(r chi.Router, actorOnly func(http.Handler) http.Handler) {
	r.Route("/events/{eventID}/attendance", func(r chi.Router) {
		r.Use(actorOnly)
		r.Post("/", h.ValidateAttendance)
		r.Get("/", h.Report)
	})
}

type validateRequest struct {
	ParticipantIDs []domain.ParticipantID `json:"participantIds"`
}

// ValidateAttendance records which participants actually attended the event.
func (h *Handler) ValidateAttendance(w http.ResponseWriter, r *http.Request) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "invalid event id"))
		return
	}

	var req validateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	visits, err := h.service.ValidateAttendance(r.Context(), eventID, req.ParticipantIDs)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

// Report returns the RSVP-versus-presence reconciliation for the event.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "invalid event id"))
		return
	}

	report, err := h.service.Report(r.Context(), eventID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}
