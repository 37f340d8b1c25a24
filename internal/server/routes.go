package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/observability"
	"github.com/edgarlens/edgarlens/internal/server/handlers"
	servermw "github.com/edgarlens/edgarlens/internal/server/middleware"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	if s.edgar != nil {
		s.router.Route("/v1", func(r chi.Router) {
			r.Use(servermw.RateLimit(s.cfg.RateLimit, s.cfg.Burst))

			r.Get("/submissions/{id}", s.edgar.Submissions)
			r.Get("/concept/{id}/{taxonomy}/{tag}", s.edgar.CompanyConcept)
			r.Get("/facts/{id}", s.edgar.CompanyFacts)
			r.Get("/frames/{taxonomy}/{tag}/{unit}/{period}", s.edgar.Frames)
			r.Get("/cik", s.edgar.CIK)
			r.Get("/companies", s.edgar.Universe)
			r.Post("/batch/submissions", s.edgar.SubmissionsBatch)
			r.Post("/batch/facts", s.edgar.CompanyFactsBatch)
		})
	}

	// Admin signal endpoint (optional, requires EDGARLENS_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	tokenVar := config.EnvPrefix + "ADMIN_TOKEN"
	adminToken := os.Getenv(tokenVar)
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + tokenVar + " set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
