package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/core"
	"github.com/edgarlens/edgarlens/internal/core/engine"
	"github.com/edgarlens/edgarlens/internal/edgar"
	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/server/handlers"
)

func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case edgar.TickerIndexPath:
			_, _ = w.Write([]byte(`{"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}}`))
		case "/submissions/CIK0000320193.json":
			_, _ = w.Write([]byte(`{"cik": "0000320193", "name": "Apple Inc.", "tickers": ["AAPL"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *atomic.Int32) {
	t.Helper()
	upstream, hits := newUpstream(t)
	client := edgar.New(
		edgar.WithBaseURL(upstream.URL),
		edgar.WithFilesURL(upstream.URL),
		edgar.WithRate(1000, time.Second),
		edgar.WithRetry(engine.RetryPolicy{Attempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
	t.Cleanup(func() { _ = client.Close() })
	return New(cfg, client.Async()), hits
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(config.ServerConfig{Host: "127.0.0.1"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func TestSubmissionsThroughServerUsesCache(t *testing.T) {
	srv, hits := newTestServer(t, config.ServerConfig{})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/submissions/AAPL", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

		var history core.SubmissionHistory
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
		assert.Equal(t, "Apple Inc.", history.Name)
	}

	// index + submissions, each fetched once
	assert.Equal(t, int32(2), hits.Load())
}

func TestUnknownTickerIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/facts/ZZZZ", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ticker 'ZZZZ' not found", body.Error.Message)
}

func TestV1RoutesAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{RateLimit: 1, Burst: 1})

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/cik?ticker=AAPL", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/v1/cik?ticker=AAPL", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// health stays outside the limiter
	health := httptest.NewRecorder()
	srv.Handler().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, config.ServerConfig{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/submissions/AAPL", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := New(config.ServerConfig{}, nil)
	assert.NoError(t, srv.Shutdown(t.Context()))
}

func TestReadinessReportsQuotaAndCache(t *testing.T) {
	upstream, _ := newUpstream(t)
	client := edgar.New(
		edgar.WithBaseURL(upstream.URL),
		edgar.WithFilesURL(upstream.URL),
		edgar.WithRate(2, time.Hour),
		edgar.WithRetry(engine.RetryPolicy{Attempts: 1}),
	)
	t.Cleanup(func() { _ = client.Close() })
	srv := New(config.ServerConfig{}, client.Async())

	ready := func() handlers.EndpointResponse {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body handlers.EndpointResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.EDGAR)
		return body
	}

	idle := ready()
	assert.Equal(t, "healthy", idle.Status)
	assert.Equal(t, 0, idle.EDGAR.QuotaUsed)
	assert.Equal(t, 2, idle.EDGAR.QuotaMax)
	assert.Equal(t, "1h0m0s", idle.EDGAR.Window)

	// ticker index + submissions use the whole window
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/submissions/AAPL", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	saturated := ready()
	assert.Equal(t, "degraded", saturated.Status)
	assert.Equal(t, 2, saturated.EDGAR.QuotaUsed)
	assert.Equal(t, 2, saturated.EDGAR.Cache.Size)
	assert.Equal(t, int64(2), saturated.EDGAR.Cache.Misses)
	assert.True(t, saturated.EDGAR.Cache.Enabled)
}

func TestServerUsesSuppliedHealthManager(t *testing.T) {
	hm := handlers.NewHealthManager("9.9.9")
	hm.RegisterChecker("edgar_client", handlers.CheckerFunc(func(context.Context) error {
		return errors.New("upstream down")
	}))
	srv := New(config.ServerConfig{}, nil, WithHealthManager(hm))
	require.Same(t, hm, srv.Health())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	live := httptest.NewRecorder()
	srv.Handler().ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, live.Code, "liveness never consults upstream checks")
}
