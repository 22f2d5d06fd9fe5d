//go:build integration

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"treehouse/internal/attendance/models"
	"treehouse/pkg/domain"
	"treehouse/pkg/platform/sentinel"
	"treehouse/pkg/platform/tx"
)

type PostgresLedgerSuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	db        *sql.DB
	ledger    *PostgresLedger
	runner    *tx.PostgresRunner
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("treehouse_test"),
		tcpostgres.WithUsername("treehouse"),
		tcpostgres.WithPassword("treehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(time.Minute)),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = sql.Open("postgres", dsn)
	s.Require().NoError(err)
	s.Require().NoError(s.db.PingContext(ctx))

	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "migrations", "001_init.sql"))
	s.Require().NoError(err)
	_, err = s.db.ExecContext(ctx, string(schema))
	s.Require().NoError(err)

	s.ledger = NewPostgres(s.db)
	s.runner = tx.NewPostgresRunner(s.db)
}

func (s *PostgresLedgerSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresLedgerSuite) SetupTest() {
	_, err := s.db.Exec(`TRUNCATE visits, raw_scan_events RESTART IDENTITY`)
	s.Require().NoError(err)
	_, err = s.db.Exec(`INSERT INTO participants (id, name) VALUES (1, 'One'), (2, 'Two')
		ON CONFLICT (id) DO NOTHING`)
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) TestVisitLifecycle() {
	ctx := context.Background()
	arrived := time.Now().UTC().Truncate(time.Microsecond)

	visit := models.NewVisit(1, arrived)
	s.Require().NoError(s.ledger.CreateVisit(ctx, visit))
	s.Require().NotZero(visit.ID)

	found, err := s.ledger.FindOpenVisit(ctx, 1)
	s.Require().NoError(err)
	s.Equal(visit.ID, found.ID)
	s.True(found.Arrived.Equal(arrived))

	found.Depart(arrived.Add(time.Hour))
	s.Require().NoError(s.ledger.UpdateVisit(ctx, found))

	_, err = s.ledger.FindOpenVisit(ctx, 1)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestOneOpenVisitIndex() {
	ctx := context.Background()

	s.Require().NoError(s.ledger.CreateVisit(ctx, models.NewVisit(1, time.Now())))
	err := s.ledger.CreateVisit(ctx, models.NewVisit(1, time.Now()))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresLedgerSuite) TestCloseAllOpenInTransaction() {
	ctx := context.Background()

	s.Require().NoError(s.ledger.CreateVisit(ctx, models.NewVisit(1, time.Now())))
	s.Require().NoError(s.ledger.CreateVisit(ctx, models.NewVisit(2, time.Now())))

	departed := time.Now().UTC().Truncate(time.Microsecond)
	var closed []models.Visit
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		closed, err = s.ledger.CloseAllOpen(txCtx, departed)
		return err
	})
	s.Require().NoError(err)
	s.Len(closed, 2)

	open, err := s.ledger.ListOpenVisits(ctx)
	s.Require().NoError(err)
	s.Empty(open)
}

func (s *PostgresLedgerSuite) TestRecordScanOutsideTransaction() {
	ctx := context.Background()

	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		require.NoError(s.T(), s.ledger.RecordScan(txCtx, models.RawScanEvent{
			ParticipantID: domain.ParticipantID(1),
			Time:          time.Now(),
			Location:      "Main Entrance",
		}))
		return sql.ErrTxDone // force a rollback
	})
	s.Require().Error(err)

	var count int
	s.Require().NoError(s.db.QueryRow(`SELECT COUNT(*) FROM raw_scan_events`).Scan(&count))
	s.Equal(1, count, "raw badge events survive a rolled-back transition")
}
