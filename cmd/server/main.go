package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"idintake/internal/audit"
	auditmetrics "idintake/internal/audit/metrics"
	"idintake/internal/audit/publisher"
	kafkastore "idintake/internal/audit/store/kafka"
	"idintake/internal/audit/store/logstore"
	pgstore "idintake/internal/audit/store/postgres"
	redisstore "idintake/internal/audit/store/redis"
	decisionmetrics "idintake/internal/decision/metrics"
	"idintake/internal/form"
	formmetrics "idintake/internal/form/metrics"
	httpapi "idintake/internal/http"
	"idintake/internal/parameters"
	parametershandler "idintake/internal/parameters/handler"
	"idintake/internal/platform/config"
	"idintake/internal/platform/httpserver"
	"idintake/internal/platform/kafka"
	"idintake/internal/platform/logger"
	"idintake/internal/platform/metrics"
	"idintake/internal/platform/postgres"
	"idintake/internal/platform/redis"
	"idintake/internal/provider"
	providermetrics "idintake/internal/provider/metrics"
	"idintake/internal/submission"
	submissionhandler "idintake/internal/submission/handler"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.DefaultRegisterer

	store, sinkCheck, closeStore, err := buildAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	auditor := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithLogger(log),
		publisher.WithMetrics(auditmetrics.New(reg)),
	)

	client := provider.New(cfg.Provider.BaseURL,
		provider.Credentials{Token: cfg.Provider.Token, Secret: cfg.Provider.Secret},
		provider.WithTimeout(cfg.Provider.Timeout),
		provider.WithLogger(log),
		provider.WithMetrics(providermetrics.New(reg)),
	)
	if !client.Configured() {
		log.Warn("provider credentials not configured; API requests will fail until ALLOY_API_TOKEN and ALLOY_API_SECRET are set")
	}

	paramsService := parameters.NewService(client, log)
	submitService := submission.NewService(client, auditor, log, decisionmetrics.New(reg))
	formMetrics := formmetrics.New(reg)
	resolver := form.NewResolver(paramsService, log, formMetrics)
	formHandler := form.New(resolver, submitService, log, formMetrics)

	var checks []httpapi.HealthCheck
	if sinkCheck != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "audit_sink", Check: sinkCheck})
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:   log,
		Metrics:  metrics.New(reg),
		Gatherer: prometheus.DefaultGatherer,
		Checks:   checks,
	},
		parametershandler.New(paramsService, log),
		submissionhandler.New(submitService, log),
		formHandler,
	)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting intake server",
			"addr", cfg.Addr,
			"provider", cfg.Provider.BaseURL,
			"audit_sink", cfg.Audit.Sink,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// In-flight requests are done; drain what they emitted.
		auditor.Close()
		return err
	})
	return g.Wait()
}

// buildAuditStore opens the sink selected by AUDIT_SINK. It also returns the
// sink's health probe (nil for the log sink) and a func that releases its
// connection.
func buildAuditStore(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, func(context.Context) error, func(), error) {
	noop := func() {}
	switch cfg.Audit.Sink {
	case config.AuditSinkPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, noop, err
		}
		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, noop, fmt.Errorf("migrate audit table: %w", err)
		}
		return store, db.PingContext, func() { _ = db.Close() }, nil
	case config.AuditSinkRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, noop, err
		}
		return redisstore.New(client, cfg.Redis.Stream), client.Health, func() { _ = client.Close() }, nil
	case config.AuditSinkKafka:
		client, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1, 1); err != nil {
			client.Close()
			return nil, nil, noop, err
		}
		return kafkastore.New(client, cfg.Kafka.Topic), client.Ping, client.Close, nil
	default:
		return logstore.New(log), nil, noop, nil
	}
}
