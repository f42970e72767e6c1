// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cli

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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/taibuivan/ratesync/internal/api"
	"github.com/taibuivan/ratesync/internal/platform/config"
	"github.com/taibuivan/ratesync/internal/platform/constants"
	"github.com/taibuivan/ratesync/internal/platform/metrics"
	"github.com/taibuivan/ratesync/internal/platform/migration"
	pgstore "github.com/taibuivan/ratesync/internal/platform/postgres"
	redisstore "github.com/taibuivan/ratesync/internal/platform/redis"
	"github.com/taibuivan/ratesync/internal/platform/sec"
	"github.com/taibuivan/ratesync/internal/rates"
	"github.com/taibuivan/ratesync/internal/upstream"
)

// startupTimeout bounds connecting to the optional stores.
const startupTimeout = 30 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

/*
serve runs the gateway until ctx is cancelled.

Startup sequence:

 1. Logger and configuration.
 2. Optional PostgreSQL pool, with migrations applied.
 3. Optional Redis client for the count cache.
 4. Upstream client, session registry and metrics.
 5. HTTP server, then graceful shutdown.
*/
func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(os.Stdout, cfg)
	slog.SetDefault(log)
	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("upstream", cfg.UpstreamBaseURL),
	)

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	// # Stores
	var (
		pool        *pgxpool.Pool
		redisClient *goredis.Client
		preferences rates.PreferencesRepository = rates.NewMemoryPreferencesRepository()
		countCache  rates.CountCache
		health      api.HealthDependencies
	)

	if cfg.DatabaseURL != "" {
		pool, err = pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		preferences = rates.NewPostgresPreferencesRepository(pool)
		health.CheckDatabase = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }
	} else {
		log.Warn("postgres_disabled", slog.String("reason", "DATABASE_URL is empty; preferences are kept in memory"))
	}

	if cfg.RedisURL != "" {
		redisClient, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("redis_close_failed", slog.Any("error", err))
			}
		}()

		countCache = rates.NewRedisCountCache(redisClient, cfg.CountsCacheTTL)
		health.CheckCache = func(ctx context.Context) error { return redisstore.Ping(ctx, redisClient) }
	}

	// # Instrumentation
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// # List Engine
	tokens, err := sec.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return fmt.Errorf("initialize token service: %w", err)
	}

	client, err := upstream.NewClient(upstream.Options{
		BaseURL:   cfg.UpstreamBaseURL,
		UserAgent: cfg.UpstreamUserAgent,
		Timeout:   cfg.UpstreamTimeout,
		RPS:       cfg.UpstreamRPS,
		Burst:     cfg.UpstreamBurst,
	}, log, collector)
	if err != nil {
		return err
	}

	sessions := rates.NewRegistry(
		func(session rates.Session) rates.Remote {
			return client.ForSession(session.UserID, session.Token)
		},
		rates.Config{
			PageSize:       cfg.ListPageSize,
			SearchDebounce: cfg.SearchDebounce,
			RetryInitial:   cfg.LoadRetryInitial,
			RetryMax:       cfg.LoadRetryMax,
		},
		rates.Dependencies{
			Preferences: preferences,
			CountCache:  countCache,
			Logger:      log,
			Recorder:    collector,
		},
		cfg.SessionIdleTTL,
	)

	registryDone := make(chan struct{})
	registryCtx, stopRegistry := context.WithCancel(context.Background())
	go func() {
		defer close(registryDone)
		sessions.Run(registryCtx, constants.SessionSweepInterval)
	}()

	// # HTTP Server
	health.Sessions = sessions.Len
	liveness, readiness := api.NewHealthHandlers(health, log)

	streamOptions := rates.DefaultStreamOptions()
	streamOptions.AllowedOrigins = cfg.AllowedOrigins()

	server := api.NewServer(ctx, cfg, log, tokens, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		List:      rates.NewHandler(sessions, streamOptions),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	case err = <-serverErr:
		log.Error("server_failed", slog.Any("error", err))
	}

	log.Info("server_shutting_down", slog.Duration("timeout", constants.ShutdownTimeout))
	if shutdownErr := server.Shutdown(constants.ShutdownTimeout); shutdownErr != nil {
		log.Error("server_shutdown_failed", slog.Any("error", shutdownErr))
		err = errors.Join(err, shutdownErr)
	}

	stopRegistry()
	<-registryDone

	log.Info("server_stopped")
	return err
}
