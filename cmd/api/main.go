// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Truyen HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Start the background executor and job tracker.
//  7. Wire the engines and their HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/truyen/internal/api"
	"github.com/taibuivan/truyen/internal/core/formatting"
	"github.com/taibuivan/truyen/internal/core/importer"
	"github.com/taibuivan/truyen/internal/core/story"
	"github.com/taibuivan/truyen/internal/core/unlock"
	"github.com/taibuivan/truyen/internal/platform/config"
	"github.com/taibuivan/truyen/internal/platform/constants"
	"github.com/taibuivan/truyen/internal/platform/jobs"
	"github.com/taibuivan/truyen/internal/platform/migration"
	pgstore "github.com/taibuivan/truyen/internal/platform/postgres"
	redisstore "github.com/taibuivan/truyen/internal/platform/redis"
	"github.com/taibuivan/truyen/internal/platform/sec"
	"github.com/taibuivan/truyen/internal/platform/worker"
	"github.com/taibuivan/truyen/internal/users/wallet"
	"github.com/taibuivan/truyen/pkg/textformat"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		level.Set(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context lives until a shutdown signal arrives.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Startup deadline so misconfiguration fails fast instead of hanging.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	maxConns := cfg.DBMaxConns
	if maxConns == 0 {
		maxConns = pgstore.PoolSizeFor(cfg.ImportPoolWorkers, cfg.FormatPoolWorkers+cfg.TaskPoolWorkers)
	}
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, pgstore.PoolOptions{
		MaxConns:         maxConns,
		StatementTimeout: cfg.DBStatementTimeout,
	}, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("postgres_pool_closing")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("redis_client_closing")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Background Work ────────────────────────────────────────────────
	// The executor is not bound to rootCtx so queued jobs can drain after the signal.
	executor, err := worker.NewExecutor(context.Background(), log,
		worker.PoolConfig{Name: constants.PoolImport, Workers: cfg.ImportPoolWorkers, QueueSize: cfg.ImportQueueSize},
		worker.PoolConfig{Name: constants.PoolFormat, Workers: cfg.FormatPoolWorkers, QueueSize: cfg.FormatQueueSize},
		worker.PoolConfig{Name: constants.PoolTask, Workers: cfg.TaskPoolWorkers, QueueSize: cfg.TaskQueueSize},
	)
	must(log, err, "start worker pools")

	tracker := jobs.NewTracker(log,
		jobs.WithRetention(cfg.JobRetention),
		jobs.WithStallTimeout(cfg.JobStallTimeout, cfg.JobStallPerBatch),
	)
	go tracker.Run(rootCtx, cfg.JobSweepInterval)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize token verifier")

	watermarks, err := textformat.CompileWatermarks(cfg.ExtraWatermarks)
	must(log, err, "compile watermark patterns")
	watermarks = append(textformat.DefaultWatermarks(), watermarks...)

	txManager := pgstore.NewTxManager(pool)
	stories := story.NewRepository(pool)

	importFormat := textformat.DefaultOptions()
	importFormat.Watermarks = watermarks
	importService := importer.NewService(
		stories,
		story.NewOwnershipAuthorizer(stories),
		redisstore.NewLocker(rdb, "lock:", log),
		tracker,
		executor,
		importer.Config{MaxFileSize: cfg.ImportMaxFileSize, LockTTL: cfg.ImportLockTTL, Format: importFormat},
		log,
	)

	artifacts, err := formatting.NewDirStore(cfg.FormatOutputDir)
	must(log, err, "prepare format output directory")
	formatService := formatting.NewService(artifacts, tracker, executor,
		formatting.Config{MaxFileSize: cfg.FormatMaxFileSize, Watermarks: watermarks},
		log,
	)

	walletService := wallet.NewService(wallet.NewStore(pool), txManager, cfg.SpiritStoneRate, log)

	pricing, err := pricingTable(cfg)
	must(log, err, "load unlock pricing")
	unlockService := unlock.NewService(stories, unlock.NewStore(pool), walletService, txManager,
		pricing, tracker, executor, cfg.UnlockGroupSize, log,
	)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(log,
		api.Check{Name: "postgres", Probe: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
		api.Check{Name: "redis", Probe: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	)

	server := api.NewServer(rootCtx, cfg, log, tokens, api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Importer:   importer.NewHandler(importService),
		Formatting: formatting.NewHandler(formatService),
		Wallet:     wallet.NewHandler(walletService),
		Unlock:     unlock.NewHandler(unlockService),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	// Block until OS signal or server error.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	exitCode := 0
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("server_shutdown_failed", slog.Any("error", err))
		exitCode = 1
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), constants.WorkerDrainTimeout)
	defer drainCancel()
	if err := executor.Shutdown(drainCtx); err != nil {
		log.Error("worker_drain_failed", slog.Any("error", err))
		exitCode = 1
	}

	log.Info("server_stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// pricingTable builds the unlock discount table from its configured tiers.
func pricingTable(cfg *config.Config) (*unlock.Table, error) {
	rangeTiers, err := unlock.ParseTiers(cfg.RangeTiers)
	if err != nil {
		return nil, err
	}
	fullStoryTiers, err := unlock.ParseTiers(cfg.FullStoryTiers)
	if err != nil {
		return nil, err
	}
	return unlock.NewTable(cfg.PricingVersion, rangeTiers, fullStoryTiers)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
