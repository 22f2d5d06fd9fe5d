package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	attendancestore "treehouse/internal/attendance/store"
	"treehouse/internal/event/models"
	eventstore "treehouse/internal/event/store"
	"treehouse/internal/notify"
	rosterstore "treehouse/internal/roster/store"
	"treehouse/pkg/domain"
	domainerrors "treehouse/pkg/domain-errors"
	"treehouse/pkg/platform/audit"
	"treehouse/pkg/platform/tx"
	"treehouse/pkg/testutil"

	attendancemodels "treehouse/internal/attendance/models"
)

type captureEmitter struct {
	mu      sync.Mutex
	records []audit.Record
}

func (c *captureEmitter) Emit(_ context.Context, rec audit.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
}

type captureSender struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (c *captureSender) Enqueue(_ context.Context, msg notify.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

type ReconcileSuite struct {
	suite.Suite

	ledger  *attendancestore.InMemoryLedger
	events  *eventstore.InMemoryStore
	roster  *rosterstore.InMemoryStore
	auditor *captureEmitter
	sender  *captureSender
	service *Service

	event      models.Event
	leadMentor domain.ParticipantID
}

func TestReconcileSuite(t *testing.T) {
	suite.Run(t, new(ReconcileSuite))
}

func (s *ReconcileSuite) SetupTest() {
	s.ledger = attendancestore.NewInMemory()
	s.events = eventstore.NewInMemory()
	s.roster = rosterstore.NewInMemory()
	s.auditor = &captureEmitter{}
	s.sender = &captureSender{}
	s.service = New(s.events, s.ledger, s.roster, tx.NewMemoryRunner(),
		WithAuditor(s.auditor),
		WithSender(s.sender),
	)

	s.leadMentor = 1
	s.roster.Seed(testutil.Adult(s.leadMentor, domain.CapKeyholder))

	s.event = models.Event{
		ID:           100,
		Name:         "Robotics Build Night",
		Start:        testutil.FixedTime.Add(-3 * time.Hour),
		End:          testutil.FixedTime.Add(-time.Hour),
		LeadMentorID: s.leadMentor,
	}
	s.events.Seed(s.event)
}

func (s *ReconcileSuite) mentorCtx() context.Context {
	return testutil.ActorContext(s.leadMentor)
}

func (s *ReconcileSuite) seedBadgeVisit(pid domain.ParticipantID, arrived, departed time.Time) *attendancemodels.Visit {
	v := attendancemodels.NewVisit(pid, arrived)
	v.Depart(departed)
	s.Require().NoError(s.ledger.CreateVisit(context.Background(), v))
	return v
}

func (s *ReconcileSuite) TestBadgeVisitAssociated() {
	pid := domain.ParticipantID(2)
	s.roster.Seed(testutil.Adult(pid))
	visit := s.seedBadgeVisit(pid, s.event.Start.Add(10*time.Minute), s.event.End)

	visits, err := s.service.ValidateAttendance(s.mentorCtx(), s.event.ID, []domain.ParticipantID{pid})
	s.Require().NoError(err)
	s.Require().Len(visits, 1)

	s.Equal(visit.ID, visits[0].ID)
	s.False(visits[0].Synthetic)
	s.Require().NotNil(visits[0].EventID)
	s.Equal(s.event.ID, *visits[0].EventID)
}

func (s *ReconcileSuite) TestSyntheticVisitCreated() {
	pid := domain.ParticipantID(3)
	s.roster.Seed(testutil.Adult(pid))

	visits, err := s.service.ValidateAttendance(s.mentorCtx(), s.event.ID, []domain.ParticipantID{pid})
	s.Require().NoError(err)
	s.Require().Len(visits, 1)

	v := visits[0]
	s.True(v.Synthetic)
	s.Equal(s.event.Start, v.Arrived)
	s.Equal(s.event.End, *v.Departed)
	s.Require().NotNil(v.EventID)
	s.Equal(s.event.ID, *v.EventID)
}

func (s *ReconcileSuite) TestMixedBatchSingleAuditRecord() {
	badged := domain.ParticipantID(2)
	walkIn := domain.ParticipantID(3)
	s.roster.Seed(testutil.Adult(badged))
	s.roster.Seed(testutil.Adult(walkIn))
	s.seedBadgeVisit(badged, s.event.Start, s.event.End)

	visits, err := s.service.ValidateAttendance(s.mentorCtx(), s.event.ID,
		[]domain.ParticipantID{badged, walkIn})
	s.Require().NoError(err)
	s.Len(visits, 2)

	s.Require().Len(s.auditor.records, 1)
	s.Equal(audit.ActionAttendanceValidated, s.auditor.records[0].Action)
	s.Len(s.sender.messages, 2)
}

func (s *ReconcileSuite) TestBatchFailsAtomically() {
	known := domain.ParticipantID(2)
	s.roster.Seed(testutil.Adult(known))

	_, err := s.service.ValidateAttendance(s.mentorCtx(), s.event.ID,
		[]domain.ParticipantID{known, 999})
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeNotFound))

	// Nothing was written for the known participant either.
	visits, lerr := s.ledger.ListByEvent(context.Background(), s.event.ID)
	s.Require().NoError(lerr)
	s.Empty(visits)
	s.Empty(s.auditor.records)
}

func (s *ReconcileSuite) TestAuthorizationRequired() {
	pid := domain.ParticipantID(2)
	s.roster.Seed(testutil.Adult(pid))

	_, err := s.service.ValidateAttendance(testutil.ActorContext(pid), s.event.ID,
		[]domain.ParticipantID{pid})
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeForbidden))

	// Elevated actors who are not the lead mentor may validate.
	_, err = s.service.ValidateAttendance(
		testutil.ActorContext(pid, domain.CapBoardMember), s.event.ID,
		[]domain.ParticipantID{pid})
	s.NoError(err)
}

func (s *ReconcileSuite) TestEmptyBatchRejected() {
	_, err := s.service.ValidateAttendance(s.mentorCtx(), s.event.ID, nil)
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeValidation))
}

func (s *ReconcileSuite) TestUnknownEvent() {
	_, err := s.service.ValidateAttendance(s.mentorCtx(), 999, []domain.ParticipantID{1})
	s.Require().Error(err)
	s.True(domainerrors.HasCode(err, domainerrors.CodeNotFound))
}

func (s *ReconcileSuite) TestReport() {
	attended := domain.ParticipantID(2)
	noShow := domain.ParticipantID(3)
	walkIn := domain.ParticipantID(4)
	declined := domain.ParticipantID(5)
	for _, pid := range []domain.ParticipantID{attended, noShow, walkIn, declined} {
		s.roster.Seed(testutil.Adult(pid))
	}
	s.events.SeedRSVP(models.RSVP{EventID: s.event.ID, ParticipantID: attended, Status: models.RSVPAttending})
	s.events.SeedRSVP(models.RSVP{EventID: s.event.ID, ParticipantID: noShow, Status: models.RSVPAttending})
	s.events.SeedRSVP(models.RSVP{EventID: s.event.ID, ParticipantID: declined, Status: models.RSVPNotAttending})

	s.seedBadgeVisit(attended, s.event.Start, s.event.End)
	s.seedBadgeVisit(walkIn, s.event.Start, s.event.End)
	_, err := s.service.ValidateAttendance(s.mentorCtx(), s.event.ID,
		[]domain.ParticipantID{attended, walkIn})
	s.Require().NoError(err)

	report, err := s.service.Report(s.mentorCtx(), s.event.ID)
	s.Require().NoError(err)

	s.Equal(1, report.Attended)
	s.Equal(1, report.NoShows)
	s.Equal(1, report.WalkIns)
	s.Equal(0, report.Synthetic)

	outcomes := make(map[domain.ParticipantID]models.AttendanceOutcome)
	for _, e := range report.Entries {
		outcomes[e.ParticipantID] = e.Outcome
	}
	s.Equal(models.OutcomeAttended, outcomes[attended])
	s.Equal(models.OutcomeNoShow, outcomes[noShow])
	s.Equal(models.OutcomeWalkIn, outcomes[walkIn])
	s.NotContains(outcomes, declined)
}
