// Package service implements the attendance core: the scan state machine,
// the presence snapshot, the two-deep compliance monitor, and administrative
// visit edits.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"treehouse/internal/attendance/alert"
	"treehouse/internal/attendance/metrics"
	"treehouse/internal/attendance/models"
	"treehouse/internal/notify"
	rostermodels "treehouse/internal/roster/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/tx"
)

// Ledger is the durable store of visits and raw badge events. It exclusively
// owns both lifecycles; mutating methods inside a transition participate in
// the transaction carried by the context.
type Ledger interface {
	RecordScan(ctx context.Context, scan models.RawScanEvent) error
	FindOpenVisit(ctx context.Context, participantID domain.ParticipantID) (*models.Visit, error)
	CreateVisit(ctx context.Context, visit *models.Visit) error
	UpdateVisit(ctx context.Context, visit *models.Visit) error
	FindVisit(ctx context.Context, id domain.VisitID) (*models.Visit, error)
	ListOpenVisits(ctx context.Context) ([]models.Visit, error)
	CloseAllOpen(ctx context.Context, departed time.Time) ([]models.Visit, error)
	ListRecent(ctx context.Context, limit int) ([]models.Visit, error)
}

// Roster resolves participants and households. Read-only from this core.
type Roster interface {
	FindByID(ctx context.Context, id domain.ParticipantID) (*rostermodels.Participant, error)
	FindByIDs(ctx context.Context, ids []domain.ParticipantID) (map[domain.ParticipantID]rostermodels.Participant, error)
	ListByCapability(ctx context.Context, cap domain.Capability) ([]rostermodels.Participant, error)
	FindHousehold(ctx context.Context, id domain.HouseholdID) (*rostermodels.Household, error)
}

// Sender queues fire-and-forget notifications.
type Sender interface {
	Enqueue(ctx context.Context, msg notify.Message)
}

// Service orchestrates attendance state.
type Service struct {
	ledger   Ledger
	roster   Roster
	tx       tx.Runner
	logger   *slog.Logger
	auditor  audit.Emitter
	sender   Sender
	metrics  *metrics.Metrics
	debounce alert.Debouncer
	tracer   trace.Tracer

	location    string
	alertWindow time.Duration
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

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithDebouncer(d alert.Debouncer) Option {
	return func(s *Service) { s.debounce = d }
}

func WithLocation(location string) Option {
	return func(s *Service) { s.location = location }
}

func WithAlertWindow(window time.Duration) Option {
	return func(s *Service) { s.alertWindow = window }
}

const (
	defaultLocation    = "Main Entrance"
	defaultAlertWindow = 5 * time.Minute
)

// New constructs the attendance service. The runner must give the
// transition sequence (lookup, decide, mutate, cascade) atomicity against
// concurrent scans; callers pass tx.NewPostgresRunner or tx.NewMemoryRunner
// to match the ledger.
func New(ledger Ledger, roster Roster, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		ledger:      ledger,
		roster:      roster,
		tx:          runner,
		logger:      slog.Default(),
		auditor:     audit.NopEmitter{},
		debounce:    alert.NewMemory(),
		tracer:      otel.Tracer("treehouse/attendance"),
		location:    defaultLocation,
		alertWindow: defaultAlertWindow,
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

// notifyParticipantAndLead notifies the participant, and their household
// lead when the participant belongs to a household led by someone else.
func (s *Service) notifyParticipantAndLead(ctx context.Context, p *rostermodels.Participant, event notify.EventType, payload map[string]any) {
	payload["name"] = p.Name
	s.notifyAsync(ctx, notify.Message{ParticipantID: p.ID, EventType: event, Payload: payload})

	if p.HouseholdID == nil {
		return
	}
	household, err := s.roster.FindHousehold(ctx, *p.HouseholdID)
	if err != nil || household.LeadID == p.ID {
		return
	}
	leadPayload := map[string]any{"memberName": p.Name}
	s.notifyAsync(ctx, notify.Message{ParticipantID: household.LeadID, EventType: event, Payload: leadPayload})
}

func (s *Service) countScan(transition models.TransitionType) {
	if s.metrics != nil {
		s.metrics.ScansProcessed.WithLabelValues(string(transition)).Inc()
	}
}

func (s *Service) countRejection(reason string) {
	if s.metrics != nil {
		s.metrics.ScansRejected.WithLabelValues(reason).Inc()
	}
}
