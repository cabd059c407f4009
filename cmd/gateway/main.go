// Copyright (c) 2026 Sagip Kalikasan. All rights reserved.
// Author: engineering@sagipkalikasan.org

// Command gateway is the entry point for the Bantay sync gateway.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the bbolt state file (session + sync queue).
//  4. Connect to Redis.
//  5. Restore the persisted session against the Content API.
//  6. Wire the proxy, queue replayer, and notification hub.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sagipkalikasan/bantay/internal/api"
	"github.com/sagipkalikasan/bantay/internal/auth"
	"github.com/sagipkalikasan/bantay/internal/cache"
	"github.com/sagipkalikasan/bantay/internal/contentapi"
	"github.com/sagipkalikasan/bantay/internal/gateway"
	"github.com/sagipkalikasan/bantay/internal/notify"
	boltstore "github.com/sagipkalikasan/bantay/internal/platform/bolt"
	"github.com/sagipkalikasan/bantay/internal/platform/config"
	"github.com/sagipkalikasan/bantay/internal/platform/constants"
	redisstore "github.com/sagipkalikasan/bantay/internal/platform/redis"
	"github.com/sagipkalikasan/bantay/internal/syncq"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("[Bantay] gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	contentURL, err := url.Parse(cfg.ContentAPIURL)
	must(log, err, "parse content api url")
	siteURL, err := url.Parse(cfg.SiteOriginURL)
	must(log, err, "parse site origin url")

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. State File (bbolt) ─────────────────────────────────────────────
	db, err := boltstore.Open(cfg.StatePath, log)
	must(log, err, "open state file")
	defer func() {
		log.Info("closing state file")
		if cerr := db.Close(); cerr != nil {
			log.Error("state file close error", slog.Any("error", cerr))
		}
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Session Restore ────────────────────────────────────────────────
	// Revalidate the persisted token against the Content API. Failure is
	// not fatal: the gateway starts signed out and the operator logs in.
	apiClient := contentapi.NewClient(cfg.ContentAPIURL, log)
	sessionStore := auth.NewBoltSessionStore(db)
	authService := auth.NewService(apiClient, sessionStore, log)

	state := authService.Bootstrap(startupCtx)
	log.Info("session_restored", slog.String("state", string(state)))

	// ── 6. Sync Machinery ─────────────────────────────────────────────────
	hub := notify.NewHub(log)
	queue := syncq.NewQueue(db, log)
	replayer := syncq.NewReplayer(queue, apiClient.Probe, &http.Client{}, hub, log)

	cacheStore := cache.NewStore(rdb, log)
	proxy := gateway.NewProxy(contentURL, siteURL, cacheStore, queue, hub, replayer.Kick, log)

	// Background loops stop when runCtx is cancelled during shutdown.
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go hub.Run(runCtx)
	go replayer.Run(runCtx)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
		CheckState: func() error {
			return boltstore.Ping(db)
		},
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Proxy:     proxy,
		Events:    hub.ServeWS,
	}

	server := api.NewServer(runCtx, cfg, log, authService, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
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
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete, then stop the
	// background loops. Queued writes stay in bbolt for the next start.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}
	runCancel()

	log.Info("gateway stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
