// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the account lifecycle HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the account store (PostgreSQL, SQLite or memory).
//  4. Connect to Redis when configured and pick the mailer.
//  5. Build the credential primitives (hasher, key generator, token issuer).
//  6. Wire the account engine, the reaper and the HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
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
	"path/filepath"
	"syscall"
	"time"

	"github.com/dbotia/lab5/internal/api"
	"github.com/dbotia/lab5/internal/mail"
	"github.com/dbotia/lab5/internal/platform/config"
	"github.com/dbotia/lab5/internal/platform/constants"
	"github.com/dbotia/lab5/internal/platform/middleware"
	"github.com/dbotia/lab5/internal/platform/migration"
	pgstore "github.com/dbotia/lab5/internal/platform/postgres"
	redisstore "github.com/dbotia/lab5/internal/platform/redis"
	"github.com/dbotia/lab5/internal/platform/sec"
	"github.com/dbotia/lab5/internal/users/account"
	"github.com/dbotia/lab5/internal/users/admin"
	"github.com/dbotia/lab5/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
	)

	// Root context for background work. Cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Account Store ──────────────────────────────────────────────────
	var (
		store  account.Store
		checks []api.Check
	)

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		store = account.NewPostgresStore(pool)
		checks = append(checks, api.Check{Name: "postgres", Probe: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		}})

	case config.DriverSQLite:
		must(log, os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o750), "create sqlite directory")

		lite, err := account.OpenSQLiteStore(startupCtx, cfg.SQLitePath)
		must(log, err, "open sqlite store")
		defer func() {
			log.Info("closing_sqlite_store")
			if cerr := lite.Close(); cerr != nil {
				log.Error("sqlite_close_failed", slog.Any("error", cerr))
			}
		}()

		store = lite
		checks = append(checks, api.Check{Name: "sqlite", Probe: lite.Ping})

	default:
		log.Warn("memory_store_in_use", slog.String("detail", "accounts are lost on restart"))
		store = account.NewMemoryStore()
	}

	// ── 4. Redis & Mail ───────────────────────────────────────────────────
	var mailer account.Mailer = mail.NewLogMailer(log, cfg.MailBaseURL, cfg.Debug)

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()

		mailer = mail.NewOutbox(rdb, cfg.MailOutboxKey, cfg.MailBaseURL)
		checks = append(checks, api.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		}})
	}

	// ── 5. Credential Primitives ──────────────────────────────────────────
	hasher := sec.NewHasher(sec.HashParams{
		Memory:      cfg.HashMemoryKiB,
		Iterations:  cfg.HashIterations,
		Parallelism: cfg.HashParallelism,
	})

	issuer, err := sec.NewTokenIssuerFromFiles(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, sec.IssuerOptions{
		Issuer:             constants.AuthIssuer,
		Validity:           cfg.TokenValidity,
		RememberMeValidity: cfg.TokenValidityRememberMe,
	})
	must(log, err, "initialize token issuer")

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	accountService := account.NewService(store, hasher, sec.RandomTokens{}, mailer, log,
		account.WithResetKeyValidity(cfg.ResetKeyValidity),
		account.WithPasswordPolicy(cfg.PasswordMinLength, cfg.PasswordMaxLength),
	)

	reaper := account.NewReaper(accountService, log, cfg.UnactivatedAccountTTL, cfg.ReaperInterval)
	go reaper.Run(rootCtx)

	liveness, readiness := api.NewHealthHandlers(checks, log)

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	must(log, err, "parse trusted proxies")

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, issuer, proxies, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   account.NewHandler(accountService),
		Auth:      auth.NewHandler(auth.NewService(accountService, issuer, log)),
		Admin:     admin.NewHandler(accountService),
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	rootCancel()

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String(constants.FieldApp, constants.AppName),
		slog.String(constants.FieldVersion, constants.AppVersion),
	)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// Only for startup wiring. Once serving, errors are returned and handled.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
