// Package main is the entry point for the Jatour budget risk and deal
// relevance engine. The engine watches trip spending, fires budget alerts,
// matches merchant deals against remaining budget and serves the results
// over a JSON API and a websocket event stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leosinemaxx/jatour-engine/internal/clock"
	"github.com/leosinemaxx/jatour-engine/internal/config"
	"github.com/leosinemaxx/jatour-engine/internal/di"
	"github.com/leosinemaxx/jatour-engine/internal/server"
	"github.com/leosinemaxx/jatour-engine/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Jatour engine")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("Failed to create data directory")
	}

	clk := clock.System{}

	container, err := di.Wire(cfg, clk, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := di.InitializeJobs(ctx, container, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize background jobs")
	}
	sched.Start()
	defer sched.Stop()

	handlers := server.NewHandlers(server.HandlersConfig{
		Orchestrator: container.Orchestrator,
		Analyzer:     container.Analyzer,
		Pipeline:     container.Pipeline,
		Geo:          container.Clusterer,
		Budgets:      container.BudgetRepo,
		Expenses:     container.ExpenseRepo,
		Prefs:        container.PreferenceRepo,
		Rules:        container.RuleRepo,
		Alerts:       container.AlertRepo,
		Clock:        clk,
		Log:          log,
	})

	srv := server.New(server.Config{
		Log:            log,
		Port:           cfg.Port,
		DevMode:        cfg.DevMode,
		Handlers:       handlers,
		SystemHandlers: server.NewSystemHandlers(log, cfg.DataDir, container.Databases()),
		EventsHandler:  server.NewEventsHandler(container.EventBus, log),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Jatour engine stopped")
}
