// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the StoryWeaver reading-state API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the configured store backend (memory, file, redis or postgres).
//  4. Load the novel catalogue.
//  5. Wire reader sessions and HTTP handlers.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taibuivan/storyweaver/internal/api"
	"github.com/taibuivan/storyweaver/internal/catalog"
	"github.com/taibuivan/storyweaver/internal/platform/config"
	"github.com/taibuivan/storyweaver/internal/platform/constants"
	"github.com/taibuivan/storyweaver/internal/platform/middleware"
	"github.com/taibuivan/storyweaver/internal/platform/migration"
	pgstore "github.com/taibuivan/storyweaver/internal/platform/postgres"
	redisstore "github.com/taibuivan/storyweaver/internal/platform/redis"
	"github.com/taibuivan/storyweaver/internal/platform/sec"
	"github.com/taibuivan/storyweaver/internal/reader"
	"github.com/taibuivan/storyweaver/internal/storage/kvstore"
)

// healthCheckKey is read by the readiness check of backends without a ping.
const healthCheckKey = "health:check"

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log := rawLog.With(slog.String("app", "storyweaver"))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "storyweaver"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_backend", cfg.StoreBackend),
	)

	// Root context of background work: rate limiter cleanup and session
	// hydration. Cancelled after the server stops.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Store Backend ──────────────────────────────────────────────────
	store, checks, closeStore, err := openStore(startupCtx, cfg, log)
	must(log, err, "open store backend")
	defer closeStore()

	// ── 4. Catalogue ──────────────────────────────────────────────────────
	novels, err := loadCatalog(cfg.CatalogPath, log)
	must(log, err, "load catalogue")

	// ── 5. Profile Tokens ─────────────────────────────────────────────────
	// A nil interface, not a typed nil, so that tokens are refused outright.
	var verifier middleware.TokenVerifier
	if cfg.ProfileTokenSecret != "" {
		tokens, err := sec.NewTokenService(cfg.ProfileTokenSecret, constants.ProfileTokenIssuer)
		must(log, err, "initialize profile tokens")
		verifier = tokens
	}

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	registry := reader.NewRegistry(rootCtx, store, log,
		reader.WithThrottleInterval(cfg.ProgressThrottle),
		reader.WithIdleEviction(cfg.SessionIdleTTL, constants.SessionEvictionInterval),
	)
	readerService := reader.NewService(registry, novels, log)
	readerHandler := reader.NewHandler(readerService)

	liveness, readiness := api.NewHealthHandlers(checks, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Reader:    readerHandler,
	}
	if cfg.MetricsEnabled {
		handlers.Metrics = promhttp.Handler()
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, verifier, handlers)

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
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	shutdownErr := server.Shutdown(shutdownTimeout)
	if shutdownErr != nil {
		log.Error("shutdown_error", slog.Any("error", shutdownErr))
	}

	// Pending scroll samples must reach the store before it is closed.
	registry.Close()
	rootCancel()

	if shutdownErr != nil {
		closeStore()
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// openStore connects the configured backend.
//
// Returns:
//   - kvstore.Store: The shared store; profiles are scoped by the registry
//   - []api.HealthCheck: Readiness checks of the backend
//   - func(): Releases the backend; safe to call more than once
//   - error: Connection or migration failures
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (kvstore.Store, []api.HealthCheck, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("store_not_durable", slog.String("backend", cfg.StoreBackend))
		store := kvstore.NewMemory()
		return store, []api.HealthCheck{readCheck(cfg.StoreBackend, store)}, noop, nil

	case config.BackendFile:
		store, err := kvstore.NewFile(cfg.StoreFilePath)
		if err != nil {
			return nil, nil, noop, err
		}
		log.Info("file_store_opened", slog.String("path", store.Path()))
		return store, []api.HealthCheck{readCheck(cfg.StoreBackend, store)}, noop, nil

	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, noop, err
		}
		closeClient := sync.OnceFunc(func() {
			log.Info("closing_redis_client")
			if cerr := client.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		})
		checks := []api.HealthCheck{{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisstore.Ping(ctx, client) },
		}}
		return kvstore.NewRedis(client, cfg.RedisPrefix), checks, closeClient, nil

	case config.BackendPostgres:
		if err := migration.RunUp(cfg.DatabaseURL, log); err != nil {
			return nil, nil, noop, err
		}
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, noop, err
		}
		closePool := sync.OnceFunc(func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		})
		checks := []api.HealthCheck{{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		}}
		return kvstore.NewPostgres(pool), checks, closePool, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// readCheck checks a backend without a native ping by reading a key. An absent
// key is healthy.
func readCheck(name string, store kvstore.Store) api.HealthCheck {
	return api.HealthCheck{
		Name: name,
		Check: func(ctx context.Context) error {
			_, err := store.Get(ctx, healthCheckKey)
			if errors.Is(err, kvstore.ErrNotFound) {
				return nil
			}
			return err
		},
	}
}

// loadCatalog reads the catalogue document. A missing document yields an empty
// catalogue so that reading state can still be served.
func loadCatalog(path string, log *slog.Logger) (*catalog.Static, error) {
	novels, err := catalog.LoadStatic(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("catalog_missing", slog.String("path", path))
		return catalog.NewStatic(catalog.Document{})
	}
	if err != nil {
		return nil, err
	}

	log.Info("catalog_loaded", slog.String("path", path), slog.Int("novels", novels.Len()))
	return novels, nil
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
