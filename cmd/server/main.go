// Package main is the entry point for the Cartera portfolio tracking service.
// It replays an append-only transaction ledger into positions, reconstructs
// daily valuation snapshots and reports realized gains, exposing everything
// over a REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ivanmoreno/cartera/internal/config"
	"github.com/ivanmoreno/cartera/internal/di"
	fiscalhandlers "github.com/ivanmoreno/cartera/internal/modules/fiscal/handlers"
	ledgerhandlers "github.com/ivanmoreno/cartera/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/ivanmoreno/cartera/internal/modules/portfolio/handlers"
	quoteshandlers "github.com/ivanmoreno/cartera/internal/modules/quotes/handlers"
	snapshotshandlers "github.com/ivanmoreno/cartera/internal/modules/snapshots/handlers"
	"github.com/ivanmoreno/cartera/internal/server"
	"github.com/ivanmoreno/cartera/pkg/logger"
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
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Cartera")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Background workers before the HTTP surface, so event-driven jobs are
	// ready when the first mutation arrives.
	container.QueueManager.Start(runtime.NumCPU())
	defer container.QueueManager.Stop()

	if err := container.Scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer container.Scheduler.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Cfg:       cfg,
		Databases: container.Databases(),

		LedgerHandler:    ledgerhandlers.NewHandler(container.LedgerService, log),
		PortfolioHandler: portfoliohandlers.NewHandler(container.PortfolioRepo, container.PositionRepo, log),
		QuotesHandler:    quoteshandlers.NewHandler(container.QuotesService, container.AssetRepo, log),
		SnapshotsHandler: snapshotshandlers.NewHandler(container.Reconstructor, container.Backfiller, container.SnapshotRepo, log),
		FiscalHandler:    fiscalhandlers.NewHandler(container.FiscalService, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
