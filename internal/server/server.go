package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/config"
	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/observability"
	"github.com/edgarlens/edgarlens/internal/server/handlers"
	servermw "github.com/edgarlens/edgarlens/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	edgar  *handlers.EDGARHandler
	health *handlers.HealthManager
}

// Option customizes a Server.
type Option func(*Server)

// WithHealthManager serves the health endpoints from hm, typically one with
// checkers already registered.
func WithHealthManager(hm *handlers.HealthManager) Option {
	return func(s *Server) {
		if hm != nil {
			s.health = hm
		}
	}
}

// New creates a server exposing service under /v1. Zero timeouts in cfg fall
// back to the defaults. When service reports its quota and cache state, the
// health endpoints include it.
func New(cfg config.ServerConfig, service handlers.EDGARService, opts ...Option) *Server {
	defaults := config.Default().Server
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// RequestID → Metrics → Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		health: handlers.NewHealthManager(handlers.AppVersion),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if service != nil {
		s.edgar = handlers.NewEDGARHandler(service)
		if source, ok := service.(handlers.StatusSource); ok {
			s.health.SetStatusSource(source)
		}
	}

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr),
			zap.Float64("rate_limit", s.cfg.RateLimit),
			zap.Int("burst", s.cfg.Burst))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the health manager backing /health.
func (s *Server) Health() *handlers.HealthManager {
	return s.health
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}
