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

	"github.com/aristath/arduino-watcher/internal/clients/eastmoney"
	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/kline"
	"github.com/aristath/arduino-watcher/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port    int
	Log     zerolog.Logger
	Store   *store.Store
	Bars    *kline.Service
	Client  *eastmoney.Client
	Events  *events.Manager
	Hub     *events.Hub
	DevMode bool
}

// Server is the HTTP front door: task/alert/indicator/watchlist/message/
// schedule-log CRUD, formula validation, ad-hoc indicator evaluation, and
// the websocket event stream every dispatcher publishes through.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	store  *store.Store
	bars   *kline.Service
	client *eastmoney.Client
	events *events.Manager
	hub    *events.Hub
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		store:  cfg.Store,
		bars:   cfg.Bars,
		client: cfg.Client,
		events: cfg.Events,
		hub:    cfg.Hub,
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

// setupMiddleware configures middleware.
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

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws/events", s.hub.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Get("/{id}", s.handleGetTask)
			r.Put("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
			r.Get("/{id}/schedule-logs", s.handleListScheduleLogs)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlertRules)
			r.Post("/", s.handleCreateAlertRule)
			r.Delete("/{id}", s.handleDeleteAlertRule)
		})

		r.Route("/indicators", func(r chi.Router) {
			r.Get("/", s.handleListIndicators)
			r.Post("/", s.handleCreateIndicator)
			r.Put("/{id}", s.handleUpdateIndicator)
			r.Delete("/{id}", s.handleDeleteIndicator)
			r.Post("/{id}/evaluate", s.handleEvaluateIndicator)
		})

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.handleListWatchlist)
			r.Post("/", s.handleCreateWatchlistItem)
			r.Delete("/{id}", s.handleDeleteWatchlistItem)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", s.handleListMessages)
			r.Post("/{id}/read", s.handleMarkMessageRead)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/", s.handleCreateKnowledge)
			r.Get("/search", s.handleSearchKnowledge)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/quote/{symbol}", s.handleMarketQuote)
			r.Get("/search", s.handleMarketSearch)
			r.Get("/limit/{type}", s.handleMarketLimit)
		})

		r.Post("/formulas/validate", s.handleValidateFormula)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
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
