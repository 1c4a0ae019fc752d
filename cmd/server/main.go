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

	"github.com/google/uuid"

	"github.com/example/fitness-scheduler/internal/application"
	"github.com/example/fitness-scheduler/internal/config"
	httptransport "github.com/example/fitness-scheduler/internal/http"
	"github.com/example/fitness-scheduler/internal/jobs"
	"github.com/example/fitness-scheduler/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.NewConnectionPool(sqlite.DefaultConfig(cfg.SQLiteDSN))
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := sqlite.InitializeSchema(context.Background(), pool); err != nil {
		logger.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	eventRepo := sqlite.NewEventRepository(pool)
	recurrenceRepo := sqlite.NewRecurrenceRepository(pool)
	availabilityRepo := sqlite.NewAvailabilityRepository(pool)
	preferenceRepo := sqlite.NewPreferenceRepository(pool)
	readinessRepo := sqlite.NewReadinessRepository(pool)

	eventService := application.NewEventService(eventRepo, recurrenceRepo, idGenerator, now, logger)
	preferenceService := application.NewPreferenceService(preferenceRepo, availabilityRepo, readinessRepo, idGenerator, now, logger)
	plannerService := application.NewPlannerService(eventRepo, recurrenceRepo, preferenceRepo, availabilityRepo, readinessRepo, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Events:      httptransport.NewEventHandler(eventService, logger),
		Preferences: httptransport.NewPreferenceHandler(preferenceService, logger),
		Scheduling:  httptransport.NewSchedulingHandler(eventService, plannerService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst, logger),
			httptransport.RequireIdentity(logger),
		},
	})

	maintenance := jobs.NewMaintenance(eventRepo, readinessRepo, jobs.MaintenanceConfig{
		EventRetention:     cfg.EventRetention,
		ReadinessRetention: cfg.ReadinessRetention,
	}, now, logger)
	if err := maintenance.Start(cfg.MaintenanceCron); err != nil {
		logger.Error("failed to start maintenance job", "error", err)
		os.Exit(1)
	}
	defer maintenance.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduling API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
