// Package server hosts the upload UI and JSON API around the analyzer.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/dqcheck/internal/analysis"
	"github.com/KaramelBytes/dqcheck/internal/publish"
)

// Config holds listener and upload settings.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	RateLimit      RateLimitConfig
}

// Server exposes the upload page, the analysis API, and health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	analyzer   *analysis.Analyzer
	sink       *publish.Sink
	maxUpload  int64
	draining   atomic.Bool
	logger     *slog.Logger
}

// New builds the router. sink may be nil.
func New(cfg Config, a *analysis.Analyzer, sink *publish.Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	s := &Server{
		analyzer:  a,
		sink:      sink,
		maxUpload: cfg.MaxUploadBytes,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	limit := rateLimiter(cfg.RateLimit)

	r.Get("/", s.handleIndex)
	r.With(limit).Post("/analyze", s.handleUploadPage)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.With(limit).Post("/analyze", s.handleAPIAnalyze)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown marks the server not ready and drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "not ready", "error": "shutting down"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ready"})
}

type errorResponse struct {
	Error string `json:"error"`
}
