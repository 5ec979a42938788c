// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/fileboxes/internal/api/handler"
	"github.com/newthinker/fileboxes/internal/api/middleware"
	"github.com/newthinker/fileboxes/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for one archive
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host   string
	Port   int
	APIKey string
}

// Dependencies are the components the routes are served from.
type Dependencies struct {
	Handler *handler.Handler
	// Metrics, when set, is exposed on /metrics and records requests.
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Handler == nil {
		return nil, fmt.Errorf("api: handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		logger: logger,
		mux:    mux,
	}
	s.setupRoutes(cfg, deps)

	var root http.Handler = mux
	if deps.Metrics != nil {
		root = metrics.HTTPMiddleware(deps.Metrics)(root)
	}
	root = metrics.LoggingMiddleware(logger)(root)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	h := deps.Handler
	auth := middleware.APIKeyAuth(cfg.APIKey)
	protect := func(fn http.HandlerFunc) http.Handler { return auth(fn) }

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	s.mux.Handle("GET /api/v1/entries", protect(h.List))
	s.mux.Handle("GET /api/v1/tree", protect(h.Tree))
	s.mux.Handle("GET /api/v1/entries/{key...}", protect(h.Get))
	s.mux.Handle("PUT /api/v1/entries/{key...}", protect(h.Put))
	s.mux.Handle("DELETE /api/v1/entries/{key...}", protect(h.Delete))

	if h.SnapshotsEnabled() {
		s.mux.Handle("GET /api/v1/snapshots", protect(h.ListSnapshots))
		s.mux.Handle("POST /api/v1/snapshots", protect(h.TakeSnapshot))
		s.mux.Handle("POST /api/v1/snapshots/{id}/restore", protect(h.RestoreSnapshot))
		s.mux.Handle("DELETE /api/v1/snapshots/{id}", protect(h.DeleteSnapshot))
	}

	if deps.Metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
