// Package server provides the HTTP server and routing for the engine.
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
)

// Config holds server configuration
type Config struct {
	Log            zerolog.Logger
	Port           int
	DevMode        bool
	Handlers       *Handlers
	SystemHandlers *SystemHandlers
	EventsHandler  *EventsHandler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	handlers       *Handlers
	systemHandlers *SystemHandlers
	eventsHandler  *EventsHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		handlers:       cfg.Handlers,
		systemHandlers: cfg.SystemHandlers,
		eventsHandler:  cfg.EventsHandler,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
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

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Websocket event stream, registered before the JSON API so the
		// upgrade request bypasses the compression middleware ordering.
		if s.eventsHandler != nil {
			r.Get("/events/ws", s.eventsHandler.ServeHTTP)
		}

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/disk", s.systemHandlers.HandleDiskUsage)
		})

		r.Post("/orchestrate", s.handlers.HandleOrchestrate)

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/burn-rate", s.handlers.HandleBurnRate)
		})

		r.Route("/deals", func(r chi.Router) {
			r.Post("/match", s.handlers.HandleMatchDeals)
			r.Post("/clusters", s.handlers.HandleClusterDeals)
			r.Post("/route", s.handlers.HandleRouteDeals)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/rules", s.handlers.HandleGetRules)
			r.Put("/rules", s.handlers.HandlePutRules)
			r.Get("/instances", s.handlers.HandleListAlerts)
			r.Post("/instances/{id}/resolve", s.handlers.HandleResolveAlert)
		})

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handlers.HandleGetBudget)
			r.Put("/", s.handlers.HandlePutBudget)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", s.handlers.HandleGetPreferences)
			r.Put("/", s.handlers.HandlePutPreferences)
		})

		r.Post("/expenses", s.handlers.HandleRecordExpense)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router for tests.
func (s *Server) Router() http.Handler {
	return s.router
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
