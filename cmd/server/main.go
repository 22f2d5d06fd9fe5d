// Command server runs the facility attendance service: kiosk badge scans,
// presence and compliance, administrative visit management, and event
// attendance reconciliation.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"treehouse/internal/attendance/alert"
	attendancehandler "treehouse/internal/attendance/handler"
	"treehouse/internal/attendance/metrics"
	attendanceservice "treehouse/internal/attendance/service"
	attendancestore "treehouse/internal/attendance/store"
	eventhandler "treehouse/internal/event/handler"
	eventservice "treehouse/internal/event/service"
	eventstore "treehouse/internal/event/store"
	"treehouse/internal/kiosk"
	"treehouse/internal/notify"
	"treehouse/internal/platform/config"
	"treehouse/internal/platform/httpserver"
	"treehouse/internal/platform/logger"
	"treehouse/internal/platform/middleware"
	platformotel "treehouse/internal/platform/otel"
	platformredis "treehouse/internal/platform/redis"
	"treehouse/internal/platform/session"
	rosterstore "treehouse/internal/roster/store"
	"treehouse/pkg/platform/audit"
	auditkafka "treehouse/pkg/platform/audit/kafka"
	auditmemory "treehouse/pkg/platform/audit/store/memory"
	auditpostgres "treehouse/pkg/platform/audit/store/postgres"
	auditworker "treehouse/pkg/platform/audit/worker"
	"treehouse/pkg/platform/tx"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	otelShutdown, err := platformotel.Setup(ctx, "treehouse", cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// Stores: Postgres when configured, in-memory otherwise.
	var (
		db         *sql.DB
		ledger     attendanceservice.Ledger
		fullLedger eventservice.Ledger
		roster     attendanceservice.Roster
		events     eventservice.Events
		runner     tx.Runner
		auditSinks []audit.Store
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		pgLedger := attendancestore.NewPostgres(db)
		ledger, fullLedger = pgLedger, pgLedger
		roster = rosterstore.NewPostgres(db)
		events = eventstore.NewPostgres(db)
		runner = tx.NewPostgresRunner(db)
		auditSinks = append(auditSinks, auditpostgres.New(db))
		log.Info("using postgres stores")
	} else {
		memLedger := attendancestore.NewInMemory()
		ledger, fullLedger = memLedger, memLedger
		roster = rosterstore.NewInMemory()
		events = eventstore.NewInMemory()
		runner = tx.NewMemoryRunner()
		auditSinks = append(auditSinks, auditmemory.New())
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Optional Redis for the cross-instance alert debounce.
	var debouncer alert.Debouncer = alert.NewMemory()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		debouncer = alert.NewRedis(redisClient)
		log.Info("using redis alert debounce")
	}

	// Optional Kafka mirror of the audit stream.
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		auditSinks = append(auditSinks, publisher)
		log.Info("mirroring audit records to kafka", "topic", cfg.AuditTopic)
	}

	recorder := audit.NewRecorder(log)
	worker := auditworker.New(recorder.Inbox(), log, auditSinks...)

	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(log), log)

	verifier, err := kiosk.New(cfg.KioskPublicKey, log)
	if err != nil {
		return err
	}
	sessions := session.NewManager(cfg.SessionSigningKey)

	attMetrics := metrics.New()
	attSvc := attendanceservice.New(ledger, roster, runner,
		attendanceservice.WithLogger(log),
		attendanceservice.WithAuditor(recorder),
		attendanceservice.WithSender(dispatcher),
		attendanceservice.WithMetrics(attMetrics),
		attendanceservice.WithDebouncer(debouncer),
		attendanceservice.WithLocation(cfg.ScanLocation),
		attendanceservice.WithAlertWindow(cfg.TwoDeepAlertWindow),
	)
	evtSvc := eventservice.New(events, fullLedger, roster, runner,
		eventservice.WithLogger(log),
		eventservice.WithAuditor(recorder),
		eventservice.WithSender(dispatcher),
	)

	actorOnly := middleware.RequireActor(sessions, log)
	kioskOnly := kiosk.Middleware(verifier, log)
	kioskOrActor := kiosk.MiddlewareOrActor(verifier, actorOnly, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	attendancehandler.New(attSvc, log).Register(r, kioskOnly, kioskOrActor, actorOnly)
	eventhandler.New(evtSvc, log).Register(r, actorOnly)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := httpserver.New(cfg.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := dispatcher.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		recorder.Drain(2 * time.Second)
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
