// Package main runs the liquidation HTTP service:
// - scenario runs and payout queries (Postgres or in-memory fixtures)
// - run history in ClickHouse when configured
// - previews over HTTP and the what-if websocket
// - /health, /status and Prometheus /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"flexile-liquidation/internal/api"
	"flexile-liquidation/internal/config"
	"flexile-liquidation/internal/fixtures"
	"flexile-liquidation/internal/liquidation"
	"flexile-liquidation/internal/observability"
	"flexile-liquidation/internal/storage"
	chstore "flexile-liquidation/internal/storage/clickhouse"
	"flexile-liquidation/internal/storage/instrumented"
	"flexile-liquidation/internal/storage/memory"
	"flexile-liquidation/internal/storage/migrations"
	pgstore "flexile-liquidation/internal/storage/postgres"
	"flexile-liquidation/internal/verification"
	"flexile-liquidation/internal/whatif"
)

// stores holds the storage implementations the service runs on.
type stores struct {
	database     string
	analytics    string
	capTables    storage.CapTableStore
	scenarios    storage.ScenarioStore
	payouts      storage.PayoutStore
	runSummaries storage.RunSummaryStore // nil without ClickHouse in database mode
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	// Flags override config (env vars as defaults)
	addr := flag.String("addr", cfg.HTTP.Addr(), "HTTP listen address")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage seeded with demo fixtures")
	postgresDSN := flag.String("postgres-dsn", cfg.Postgres.DSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouse.DSN, "ClickHouse connection string (optional)")
	flag.Parse()

	cfg.UseMemory = *useMemory
	cfg.Postgres.DSN = *postgresDSN
	cfg.ClickHouse.DSN = *clickhouseDSN
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	logger.SetLevel(cfg.LogLevel)
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(cfg.MetricsNamespace, registry)

	st, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to create stores: %v", err)
	}
	defer cleanup()

	capTables := instrumented.WrapCapTableStore(st.capTables, st.database, metrics)
	scenarios := instrumented.WrapScenarioStore(st.scenarios, st.database, metrics)
	payouts := instrumented.WrapPayoutStore(st.payouts, st.database, metrics)
	var runSummaries storage.RunSummaryStore
	if st.runSummaries != nil {
		runSummaries = instrumented.WrapRunSummaryStore(st.runSummaries, st.analytics, metrics)
	}

	svc := liquidation.NewService(liquidation.Options{
		CapTables:    capTables,
		Scenarios:    scenarios,
		Payouts:      payouts,
		RunSummaries: runSummaries,
		Metrics:      metrics,
		Logger:       logger.WithField("component", "liquidation"),
	})

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
	}

	handler := api.NewHandler(api.Options{
		Service:      svc,
		Payouts:      payouts,
		RunSummaries: runSummaries,
		Verifier: verification.NewPayoutVerifier(verification.PayoutVerifierOptions{
			Scenarios: scenarios,
			CapTables: capTables,
			Payouts:   payouts,
		}),
		WhatIf: whatif.NewHandler(svc, whatif.Options{
			Metrics: metrics,
			Logger:  logger.WithField("component", "whatif"),
		}),
		Cache:            cache,
		CacheTTL:         time.Duration(cfg.Redis.TTLSeconds) * time.Second,
		BatchConcurrency: cfg.BatchConcurrency,
		Metrics:          metrics,
		Logger:           logger.WithField("component", "http"),
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":      *addr,
			"storage":   st.database,
			"analytics": runSummaries != nil,
			"cache":     cache != nil,
		}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Info("shutdown complete")
}

// createStores creates all required stores.
func createStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		st := &stores{
			database:     "memory",
			analytics:    "memory",
			capTables:    memory.NewCapTableStore(),
			scenarios:    memory.NewScenarioStore(),
			payouts:      memory.NewPayoutStore(),
			runSummaries: memory.NewRunSummaryStore(),
		}
		if err := fixtures.Load(ctx, st.capTables, st.scenarios); err != nil {
			return nil, nil, fmt.Errorf("load fixtures: %w", err)
		}
		logger.WithField("company_id", fixtures.DemoCompanyID).Info("loaded demo fixtures")
		return st, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.WithField("applied", applied).Info("postgres migrations complete")

	st := &stores{
		database:  "postgres",
		capTables: pgstore.NewCapTableStore(pool),
		scenarios: pgstore.NewScenarioStore(pool),
		payouts:   pgstore.NewPayoutStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse (analytics, optional)
	if cfg.ClickHouse.DSN == "" {
		logger.Warn("CLICKHOUSE_DSN not set, run summaries disabled")
		return st, cleanup, nil
	}
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	st.runSummaries = chstore.NewRunSummaryStore(chConn)
	st.analytics = "clickhouse"

	return st, func() {
		chConn.Close()
		pool.Close()
	}, nil
}
