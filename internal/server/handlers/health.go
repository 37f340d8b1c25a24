package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/edgarlens/edgarlens/internal/edgar"
	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/metrics"
)

// Check results.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
	statusTimeout   = "timeout"
)

// quotaCheck is the synthetic check reporting upstream quota saturation.
const quotaCheck = "edgar_quota"

// HealthResponse represents the aggregate health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
	EDGAR     *edgar.Status     `json:"edgar,omitempty"`
}

// EndpointResponse is the body of the live, ready and startup endpoints.
type EndpointResponse struct {
	Status    string        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	EDGAR     *edgar.Status `json:"edgar,omitempty"`
}

// HealthChecker defines interface for health checkable components
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

// CheckHealth calls f.
func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// StatusSource reports the EDGAR client's quota and cache state.
// *edgar.Client and *edgar.AsyncClient satisfy it.
type StatusSource interface {
	Status() edgar.Status
}

// HealthManager runs registered checks for the health endpoints. A saturated
// upstream quota degrades readiness without failing it: requests still
// succeed, they just wait for the window to roll.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
	client   StatusSource
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
	}
}

// RegisterChecker registers a health checker
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// SetStatusSource attaches the client whose quota and cache are reported.
func (hm *HealthManager) SetStatusSource(source StatusSource) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.client = source
}

// runHealthChecks executes all registered health checks in name order.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		names = append(names, name)
		checkers[name] = checker
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string, len(names)+1)
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = statusTimeout
			continue
		}
		start := time.Now()
		err := checkers[name].CheckHealth(ctx)
		metrics.RecordHealthCheck(name, err == nil, time.Since(start))
		switch {
		case err == nil:
			checks[name] = statusHealthy
		case ctx.Err() != nil:
			checks[name] = statusTimeout
		default:
			checks[name] = statusUnhealthy
		}
	}
	return checks
}

// clientStatus samples the attached client and records the quota check.
func (hm *HealthManager) clientStatus(checks map[string]string) *edgar.Status {
	hm.mu.RLock()
	source := hm.client
	hm.mu.RUnlock()
	if source == nil {
		return nil
	}

	start := time.Now()
	status := source.Status()
	metrics.RecordHealthCheck(quotaCheck, !status.Saturated(), time.Since(start))
	if status.Saturated() {
		checks[quotaCheck] = statusDegraded
	} else {
		checks[quotaCheck] = statusHealthy
	}
	return &status
}

// determineOverallStatus determines overall health status
func (hm *HealthManager) determineOverallStatus(checks map[string]string) string {
	degraded := false
	for _, status := range checks {
		if status == statusUnhealthy {
			return statusUnhealthy
		}
		if status == statusDegraded || status == statusTimeout {
			degraded = true
		}
	}
	if degraded {
		return statusDegraded
	}
	return statusHealthy
}

// HealthHandler handles aggregate health check requests
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checkCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	edgarStatus := hm.clientStatus(checks)
	status := hm.determineOverallStatus(checks)

	if status == statusUnhealthy {
		respondUnavailable(w, r, "aggregate health check failed", "", status, checks)
		return
	}

	writeHealthJSON(w, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		EDGAR:     edgarStatus,
	})
}

// LivenessHandler reports that the process serves requests. It runs no
// checks, so an EDGAR outage never restarts the proxy.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, EndpointResponse{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC(),
	})
}

// ReadinessHandler runs every check and reports the upstream quota and cache.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveChecks(w, r, "ready", 5*time.Second)
}

// StartupHandler runs every check with a shorter budget.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveChecks(w, r, "startup", 3*time.Second)
}

func (hm *HealthManager) serveChecks(w http.ResponseWriter, r *http.Request, name string, timeout time.Duration) {
	checkCtx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	checks := hm.runHealthChecks(checkCtx)
	edgarStatus := hm.clientStatus(checks)
	status := hm.determineOverallStatus(checks)

	if status == statusUnhealthy {
		respondUnavailable(w, r, name+" check failed", name, status, checks)
		return
	}

	writeHealthJSON(w, EndpointResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		EDGAR:     edgarStatus,
	})
}

func writeHealthJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func respondUnavailable(w http.ResponseWriter, r *http.Request, message, endpoint, status string, checks map[string]string) {
	envelope := errors.NewErrorEnvelope(apperrors.CodeUnavailable, message)
	respondWithError(w, r, enrichHealthEnvelope(envelope, endpoint, status, checks))
}

func enrichHealthEnvelope(envelope *errors.ErrorEnvelope, endpoint, status string, checks map[string]string) *errors.ErrorEnvelope {
	if envelope == nil {
		return nil
	}

	details := map[string]interface{}{
		"status": status,
	}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	if endpoint != "" {
		details["endpoint"] = endpoint
	}
	envelope = envelope.WithDetails(details)

	contextData := map[string]interface{}{
		"status": status,
	}
	if endpoint != "" {
		contextData["endpoint"] = endpoint
	}

	var unhealthy []string
	for name, result := range checks {
		if result != statusHealthy {
			unhealthy = append(unhealthy, name)
		}
	}
	if len(unhealthy) > 0 {
		sort.Strings(unhealthy)
		contextData["unhealthy_checks"] = unhealthy
	}

	envelope, _ = envelope.WithContext(contextData)
	return envelope
}
