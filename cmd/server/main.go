package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/projview/internal/config"
	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/logging"
	"github.com/JonMunkholm/projview/internal/web"
)

func main() {
	// Variables already in the environment win over .env
	if err := config.LoadEnvFiles(".env"); err != nil {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"fetch_enabled", cfg.Fetch.Enabled,
		"search_enabled", cfg.Search.Enabled,
		"audit_enabled", cfg.Database.Enabled(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	// The load audit is optional; without a database loads are not recorded
	var audit core.AuditSink
	if cfg.Database.Enabled() {
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg, err := core.NewPGAudit(ctx, pool)
		if err != nil {
			slog.Error("failed to prepare load audit", "error", err)
			os.Exit(1)
		}
		audit = pg
	}

	var fetcher *core.Fetcher
	if cfg.Fetch.Enabled {
		fetcher = core.NewFetcher(core.FetchConfig{
			Timeout:  cfg.Fetch.Timeout,
			RetryMax: cfg.Fetch.RetryMax,
			MaxBytes: cfg.Fetch.MaxBytes,

			AllowPrivate: cfg.Fetch.AllowPrivate,
			AllowedHosts: cfg.Fetch.AllowedHosts,
		}, nil)
	}

	sessions := core.NewSessionStore(cfg.Session.IdleTimeout)
	limiter := core.NewLoadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	service := core.NewService(sessions, limiter, fetcher, audit, core.ServiceConfig{
		MaxSourceBytes: cfg.Upload.MaxFileSize,
		Search:         cfg.Search.Enabled,
	})

	server := web.NewServer(service, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go sessions.StartSweeper(jobCtx, cfg.Session.SweepInterval)
	server.RunBackground(jobCtx)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running loads finish (with timeout)
		if active := limiter.Active(); active > 0 {
			slog.Info("waiting for loads to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("loads did not complete in time", "error", err)
			} else {
				slog.Info("all loads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
}

// openPool connects to the audit database and verifies the connection.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to audit database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
