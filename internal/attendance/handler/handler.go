// Package handler exposes the attendance core over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"treehouse/internal/attendance/models"
	"treehouse/internal/attendance/service"
	"treehouse/internal/platform/httpx"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
	"treehouse/pkg/requestcontext"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the attendance routes. The caller supplies the three
// authentication middlewares: kiosk-signature only, kiosk-or-staff, and
// staff-session only.
func (h *Handler) Register(r chi.Router, kioskOnly, kioskOrActor, actorOnly func(http.Handler) http.Handler) {
	r.With(kioskOnly).Post("/scan", h.Scan)
	r.With(kioskOrActor).Get("/attendance", h.Presence)
	r.With(actorOnly).Post("/attendance", h.ManualCheckIn)
	r.With(actorOnly).Delete("/attendance", h.ForceCheckout)
	r.With(kioskOrActor).Post("/alerts/two-deep", h.TwoDeepAlert)

	r.Route("/admin/visits", func(r chi.Router) {
		r.Use(actorOnly)
		r.Get("/", h.RecentVisits)
		r.Patch("/{visitID}", h.EditVisit)
	})
}

type scanRequest struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
	Location      string               `json:"location,omitempty"`
}

// Scan processes one badge scan from a kiosk.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if req.ParticipantID <= 0 {
		httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "participantId is required"))
		return
	}

	result, err := h.service.ProcessScan(r.Context(), req.ParticipantID, req.Location)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

type presenceResponse struct {
	Entries      []models.PresenceEntry  `json:"entries"`
	FacilityOpen bool                    `json:"facilityOpen"`
	Compliance   models.ComplianceStatus `json:"compliance"`
}

// Presence returns who is on site, the derived facility state, and the
// two-deep compliance status. Polled by kiosks for the lobby display.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, presenceResponse{
		Entries:      snapshot.Entries,
		FacilityOpen: snapshot.FacilityOpen(),
		Compliance:   service.Evaluate(snapshot, requestcontext.Now(r.Context())),
	})
}

type manualCheckInRequest struct {
	ParticipantID domain.ParticipantID `json:"participantId"`
}

// ManualCheckIn checks in a participant on their behalf.
func (h *Handler) ManualCheckIn(w http.ResponseWriter, r *http.Request) {
	var req manualCheckInRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if req.ParticipantID <= 0 {
		httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "participantId is required"))
		return
	}

	visit, err := h.service.ManualCheckIn(r.Context(), req.ParticipantID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, visit)
}

type forceCheckoutRequest struct {
	VisitID domain.VisitID `json:"visitId"`
}

// ForceCheckout closes a visit on the participant's behalf.
func (h *Handler) ForceCheckout(w http.ResponseWriter, r *http.Request) {
	var req forceCheckoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if req.VisitID <= 0 {
		httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "visitId is required"))
		return
	}

	result, err := h.service.ForceCheckout(r.Context(), req.VisitID)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// TwoDeepAlert runs the two-deep check on demand. Kiosks call it after
// presence changes; the alert itself is debounced service-side.
func (h *Handler) TwoDeepAlert(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CheckTwoDeep(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

// RecentVisits lists recent visits for the admin screen.
func (h *Handler) RecentVisits(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "limit must be an integer"))
			return
		}
		limit = n
	}

	visits, err := h.service.RecentVisits(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

type editVisitRequest struct {
	Arrived *time.Time `json:"arrived"`

	// Departed and EventID are raw so "field absent" and "field: null" can be
	// told apart; null clears the field, which for Departed reopens the visit.
	Departed json.RawMessage `json:"departed"`
	EventID  json.RawMessage `json:"eventId"`
}

// EditVisit applies an administrative correction to a visit.
func (h *Handler) EditVisit(w http.ResponseWriter, r *http.Request) {
	visitID, err := domain.ParseVisitID(chi.URLParam(r, "visitID"))
	if err != nil {
		httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "invalid visit id"))
		return
	}

	var req editVisitRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	edit := service.VisitEdit{Arrived: req.Arrived}
	if req.Departed != nil {
		edit.DepartedSet = true
		if string(req.Departed) != "null" {
			var t time.Time
			if err := json.Unmarshal(req.Departed, &t); err != nil {
				httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "departed must be a timestamp or null"))
				return
			}
			edit.Departed = &t
		}
	}
	if req.EventID != nil {
		edit.EventIDSet = true
		if string(req.EventID) != "null" {
			var id domain.EventID
			if err := json.Unmarshal(req.EventID, &id); err != nil || id <= 0 {
				httpx.WriteError(w, h.logger, domainerrors.New(domainerrors.CodeValidation, "eventId must be a positive integer or null"))
				return
			}
			edit.EventID = &id
		}
	}

	visit, err := h.service.EditVisit(r.Context(), visitID, edit)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, visit)
}
