// Package service reconciles event RSVPs against the visit ledger.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	attendancemodels "treehouse/internal/attendance/models"
	"treehouse/internal/event/models"
	"treehouse/internal/notify"
	rostermodels "treehouse/internal/roster/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/tx"
)

// Events reads the event schedule and its RSVPs.
type Events interface {
	FindEvent(ctx context.Context, id domain.EventID) (*models.Event, error)
	ListRSVPs(ctx context.Context, eventID domain.EventID) ([]models.RSVP, error)
}

// Ledger is the slice of the visit ledger the reconciler needs: matching
// unassociated visits to event windows and creating synthetic ones.
type Ledger interface {
	FindReconcilable(ctx context.Context, participantID domain.ParticipantID, start, end time.Time) (*attendancemodels.Visit, error)
	CreateVisit(ctx context.Context, visit *attendancemodels.Visit) error
	UpdateVisit(ctx context.Context, visit *attendancemodels.Visit) error
	ListByEvent(ctx context.Context, eventID domain.EventID) ([]attendancemodels.Visit, error)
}

// Roster resolves participants for validation and notifications.
type Roster interface {
	FindByIDs(ctx context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]rostermodels.Participant, error)
}

// Sender queues fire-and-forget notifications.
type Sender interface {
	Enqueue(ctx context.Context, msg notify.Message)
}

// Service reconciles declared attendance against badge-recorded presence.
type Service struct {
	events  Events
	ledger  Ledger
	roster  Roster
	tx      tx.Runner
	logger  *slog.Logger
	auditor audit.Emitter
	sender  Sender
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditor(a audit.Emitter) Option {
	return func(s *Service) { s.auditor = a }
}

func WithSender(sender Sender) Option {
	return func(s *Service) { s.sender = sender }
}

func New(events Events, ledger Ledger, roster Roster, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		events:  events,
		ledger:  ledger,
		roster:  roster,
		tx:      runner,
		logger:  slog.Default(),
		auditor: audit.NopEmitter{},
		tracer:  otel.Tracer("treehouse/event"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notifyAsync(ctx context.Context, msg notify.Message) {
	if s.sender == nil {
		return
	}
	s.sender.Enqueue(ctx, msg)
}
