// Package server provides the HTTP server and routing for Cartera.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ivanmoreno/cartera/internal/config"
	"github.com/ivanmoreno/cartera/internal/database"
	fiscalhandlers "github.com/ivanmoreno/cartera/internal/modules/fiscal/handlers"
	ledgerhandlers "github.com/ivanmoreno/cartera/internal/modules/ledger/handlers"
	portfoliohandlers "github.com/ivanmoreno/cartera/internal/modules/portfolio/handlers"
	quoteshandlers "github.com/ivanmoreno/cartera/internal/modules/quotes/handlers"
	snapshotshandlers "github.com/ivanmoreno/cartera/internal/modules/snapshots/handlers"
)

// Config holds everything the HTTP server needs.
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	Databases map[string]*database.DB

	LedgerHandler    *ledgerhandlers.Handler
	PortfolioHandler *portfoliohandlers.Handler
	QuotesHandler    *quoteshandlers.Handler
	SnapshotsHandler *snapshotshandlers.Handler
	FiscalHandler    *fiscalhandlers.Handler
}

// Server is the HTTP front of the application.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    Config
	system *SystemHandlers
	log    zerolog.Logger
}

// New creates a new HTTP server with all module routes mounted.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		system: NewSystemHandlers(cfg.Databases, cfg.Cfg.DataDir, cfg.Log),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.cfg.PortfolioHandler.RegisterRoutes(r)
		s.cfg.LedgerHandler.RegisterRoutes(r)
		s.cfg.QuotesHandler.RegisterRoutes(r)
		s.cfg.SnapshotsHandler.RegisterRoutes(r)
		s.cfg.FiscalHandler.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.system.HandleSystemStatus)
			r.Get("/database/stats", s.system.HandleDatabaseStats)
			r.Get("/disk", s.system.HandleDiskUsage)
		})
	})
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
