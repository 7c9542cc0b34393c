// cmd/service/main.go
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

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"devsprint-service/internal/api"
	"devsprint-service/internal/config"
	"devsprint-service/internal/correlator"
	"devsprint-service/internal/database"
	"devsprint-service/internal/github"
	"devsprint-service/internal/poller"
	"devsprint-service/internal/seed"
	"devsprint-service/internal/simulation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	queries := database.New(dbpool)
	engine := simulation.NewEngine(dbpool, logger, nil)
	ingester := correlator.New(dbpool, logger)

	if cfg.SeedDemo {
		if err := seed.New(queries, ingester, logger, nil).Run(ctx); err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	// 6. Start the background loops
	go engine.Run(ctx, cfg.SnapshotInterval)

	if cfg.PollingEnabled() {
		ghClient := github.NewClient(cfg.GithubToken, logger)
		activityPoller, err := poller.NewPoller(queries, ghClient, ingester, logger, cfg.ReposToSync, cfg.PollInterval, cfg.DefaultSyncSinceTime)
		if err != nil {
			return fmt.Errorf("failed to create poller: %w", err)
		}
		go activityPoller.Start(ctx)
	} else {
		logger.Info("REPOS_TO_SYNC not set, activity poller disabled")
	}

	// 7. Serve the API until the shutdown signal arrives
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(queries, engine, ingester, logger, nil),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received. Draining HTTP server.")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	logger.Info("Exiting.")
	return nil
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
