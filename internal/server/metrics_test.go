package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry/exporters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/edgarlens/internal/config"
	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubExporter(t *testing.T, transport roundTripFunc) {
	t.Helper()
	originalClient := metricsProxyClient
	originalExporter := observability.PrometheusExporter
	t.Cleanup(func() {
		metricsProxyClient = originalClient
		observability.PrometheusExporter = originalExporter
	})

	metricsProxyClient = &http.Client{Transport: transport}
	observability.PrometheusExporter = exporters.NewPrometheusExporter("edgarlens", ":9790")
}

func TestMetricsRouteProxiesEDGARMetrics(t *testing.T) {
	var upstream *http.Request
	stubExporter(t, func(req *http.Request) (*http.Response, error) {
		upstream = req
		body := strings.Join([]string{
			"# HELP edgarlens_edgar_fetch_total Upstream EDGAR fetches",
			`edgarlens_edgar_fetch_total{regime="cooperative",status="200"} 3`,
			`edgarlens_edgar_cache_lookups_total{regime="cooperative",result="hit"} 5`,
			"",
		}, "\n")
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}
		resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
		resp.Header.Set("Connection", "close")
		return resp, nil
	})

	srv := New(config.ServerConfig{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Accept", "text/plain")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, upstream)
	assert.Equal(t, "127.0.0.1", upstream.URL.Hostname())
	assert.Equal(t, "/metrics", upstream.URL.Path)
	assert.Equal(t, "text/plain", upstream.Header.Get("Accept"))

	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "edgarlens_edgar_fetch_total")
	assert.Contains(t, rec.Body.String(), `result="hit"`)
}

func TestMetricsRouteUnavailableWithoutExporter(t *testing.T) {
	original := observability.PrometheusExporter
	observability.PrometheusExporter = nil
	t.Cleanup(func() { observability.PrometheusExporter = original })

	srv := New(config.ServerConfig{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Request-ID", "scrape-1")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeUnavailable, body.Error.Code)
	assert.Equal(t, "scrape-1", body.Error.RequestID)
}

func TestMetricsRouteExporterUnreachable(t *testing.T) {
	stubExporter(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	srv := New(config.ServerConfig{}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "127.0.0.1", "exporter address stays in logs")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
