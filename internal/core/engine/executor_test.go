package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/require"

	"github.com/edgarlens/edgarlens/internal/core/cache"
	"github.com/edgarlens/edgarlens/internal/observability"
)

type countingLimiter struct {
	calls atomic.Int32
}

func (c *countingLimiter) Acquire(context.Context) error {
	c.calls.Add(1)
	return nil
}

type retryRecorder struct {
	mu       sync.Mutex
	attempts []int
	sleeps   []time.Duration
}

func (r *retryRecorder) OnRetry(attempt int, wait time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	r.sleeps = append(r.sleeps, wait)
}

// testRetryPolicy keeps real backoff waits short.
func testRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       3,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2,
	}
}

func newTestExecutor(baseURL string, c *cache.Cache) (*Executor, *countingLimiter, *retryRecorder) {
	limiter := &countingLimiter{}
	recorder := &retryRecorder{}
	return &Executor{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 2 * time.Second},
		Limiter: limiter,
		Cache:   c,
		Retry:   testRetryPolicy(),
		OnRetry: recorder.OnRetry,
	}, limiter, recorder
}

func TestExecutorCaching(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cik":"0000320193","name":"Apple Inc."}`))
	}))
	defer server.Close()

	t.Run("enabled cache issues one network call", func(t *testing.T) {
		hits.Store(0)
		exec, limiter, _ := newTestExecutor(server.URL, cache.New(8, true))

		first, err := exec.Fetch(context.Background(), "/submissions/CIK0000320193.json")
		require.NoError(t, err)
		second, err := exec.Fetch(context.Background(), "/submissions/CIK0000320193.json")
		require.NoError(t, err)

		require.Equal(t, int32(1), hits.Load())
		require.Equal(t, int32(1), limiter.calls.Load(), "cache hit must not consult the limiter")
		require.Equal(t, first, second)
		require.Equal(t, 1, exec.Cache.Size())
	})

	t.Run("disabled cache issues a call per fetch", func(t *testing.T) {
		hits.Store(0)
		exec, limiter, _ := newTestExecutor(server.URL, cache.New(8, false))

		for i := 0; i < 2; i++ {
			_, err := exec.Fetch(context.Background(), "/submissions/CIK0000320193.json")
			require.NoError(t, err)
		}

		require.Equal(t, int32(2), hits.Load())
		require.Equal(t, int32(2), limiter.calls.Load())
		require.Equal(t, 0, exec.Cache.Size())
	})

	t.Run("paths differing by one character are distinct keys", func(t *testing.T) {
		hits.Store(0)
		exec, _, _ := newTestExecutor(server.URL, cache.New(8, true))

		_, err := exec.Fetch(context.Background(), "/api/xbrl/frames/us-gaap/Assets/USD/CY2024Q1.json")
		require.NoError(t, err)
		_, err = exec.Fetch(context.Background(), "/api/xbrl/frames/us-gaap/Assets/USD/CY2024Q1I.json")
		require.NoError(t, err)

		require.Equal(t, int32(2), hits.Load())
		require.Equal(t, 2, exec.Cache.Size())
	})
}

func TestExecutorHeaders(t *testing.T) {
	var gotUA, gotAccept, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	exec, _, _ := newTestExecutor(server.URL+"/", cache.New(1, false))
	_, err := exec.Fetch(context.Background(), "/api/xbrl/companyfacts/CIK0000320193.json")
	require.NoError(t, err)

	require.Equal(t, DefaultUserAgent, gotUA)
	require.Equal(t, "application/json", gotAccept)
	require.Equal(t, "/api/xbrl/companyfacts/CIK0000320193.json", gotPath)
}

func TestExecutorRetriesTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	exec, limiter, retries := newTestExecutor(baseURL, cache.New(4, true))
	_, err := exec.Fetch(context.Background(), "/submissions/CIK0000000001.json")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRetriesExhausted)

	var retryErr *RetryError
	require.True(t, errors.As(err, &retryErr))
	require.Equal(t, 3, retryErr.Attempts)
	require.Equal(t, "/submissions/CIK0000000001.json", retryErr.Path)
	require.NotNil(t, retryErr.Unwrap())

	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))

	require.Equal(t, int32(3), limiter.calls.Load(), "every attempt is admitted by the limiter")
	require.Equal(t, []time.Duration{5 * time.Millisecond, 10 * time.Millisecond}, retries.sleeps)
	require.Equal(t, []int{1, 2}, retries.attempts)
	require.Equal(t, 0, exec.Cache.Size())
}

func TestExecutorRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	exec, _, retries := newTestExecutor(server.URL, cache.New(4, true))
	body, err := exec.Fetch(context.Background(), "/x.json")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ok": true}, body)
	require.Equal(t, int32(2), calls.Load())
	require.Len(t, retries.sleeps, 1)
}

func TestExecutorExhaustsOnPersistentServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	exec, _, _ := newTestExecutor(server.URL, cache.New(4, true))
	_, err := exec.Fetch(context.Background(), "/x.json")
	require.ErrorIs(t, err, ErrRetriesExhausted)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, int32(3), calls.Load())
}

func TestExecutorDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	exec, _, retries := newTestExecutor(server.URL, cache.New(4, true))
	_, err := exec.Fetch(context.Background(), "/submissions/CIK9999999999.json")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrRetriesExhausted))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.False(t, statusErr.Temporary())
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, retries.sleeps)
}

func TestExecutorHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	exec, _, retries := newTestExecutor(server.URL, cache.New(4, true))
	exec.Clock = func() time.Time { return now }
	exec.Log = NewRequestLog(10, time.Second)

	body, err := exec.Fetch(context.Background(), "/x.json")
	require.NoError(t, err)
	require.Equal(t, []any{}, body)
	require.Equal(t, []time.Duration{time.Second}, retries.sleeps, "Retry-After overrides the exponential schedule")

	limiter := NewBlockingLimiter(exec.Log)
	limiter.Clock = func() time.Time { return now }
	var slept time.Duration
	limiter.Sleep = func(d time.Duration) { slept = d }
	require.NoError(t, limiter.Acquire(context.Background()))
	require.Equal(t, time.Second, slept, "shared log holds other callers until Retry-After")
}

func TestExecutorDecodeFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	exec, _, _ := newTestExecutor(server.URL, cache.New(4, true))
	_, err := exec.Fetch(context.Background(), "/x.json")
	require.ErrorIs(t, err, ErrDecode)
	require.Equal(t, int32(1), calls.Load())
}

func TestExecutorContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec, _, _ := newTestExecutor(server.URL, cache.New(4, true))
	exec.Limiter = NewBlockingLimiter(NewRequestLog(1, time.Second))
	_, err := exec.Fetch(ctx, "/x.json")
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecutorRequiresBaseURL(t *testing.T) {
	exec, _, _ := newTestExecutor("", cache.New(1, true))
	_, err := exec.Fetch(context.Background(), "/x.json")
	require.Error(t, err)
}

func TestRetryPolicyBackoff(t *testing.T) {
	policy := DefaultRetryPolicy()
	expected := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	b := policy.backOff()
	for i, want := range expected {
		require.Equal(t, want, b.NextBackOff(), "retry %d", i+1)
	}

	require.Equal(t, 3, RetryPolicy{}.normalized().Attempts)
}

func TestRetryPolicyNormalizesInvertedBounds(t *testing.T) {
	b := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: time.Millisecond, Multiplier: 3}.backOff()
	require.Equal(t, time.Second, b.NextBackOff())
	require.Equal(t, time.Second, b.NextBackOff(), "max is raised to the initial backoff")
}

func TestExecutorLogsInboundRequestID(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	logPath := filepath.Join(t.TempDir(), "fetch.log")
	logger, err := logging.New(&logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: "DEBUG",
		Service:      "edgarlens-test",
		Sinks: []logging.SinkConfig{
			{Type: "file", Format: "json", File: &logging.FileSinkConfig{Path: logPath, MaxSize: 1}},
		},
	})
	require.NoError(t, err)

	exec, _, recorder := newTestExecutor(server.URL, cache.New(4, true))
	exec.Logger = logger

	ctx := observability.WithRequestID(context.Background(), "req-edgar-7")
	_, err = exec.Fetch(ctx, "/submissions/CIK0000320193.json")
	require.NoError(t, err)
	require.Equal(t, []int{1}, recorder.attempts)

	_ = logger.Sync()
	written, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(written), "retrying upstream request")
	require.Contains(t, string(written), `"request_id":"req-edgar-7"`)
}

func TestExecutorKeepsNumericPrecision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"val":394328000000,"fy":2024,"ratio":0.125}`))
	}))
	defer server.Close()

	exec, _, _ := newTestExecutor(server.URL, cache.New(4, true))
	body, err := exec.Fetch(context.Background(), "/api/xbrl/companyconcept/CIK0000320193/us-gaap/Revenues.json")
	require.NoError(t, err)

	fields, ok := body.(map[string]any)
	require.True(t, ok)
	require.Equal(t, json.Number("394328000000"), fields["val"])
	require.Equal(t, json.Number("2024"), fields["fy"])
	require.Equal(t, json.Number("0.125"), fields["ratio"])
}

func TestStatusErrorTemporary(t *testing.T) {
	cases := map[int]bool{
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
		http.StatusTooManyRequests:     true,
		http.StatusRequestTimeout:      true,
		http.StatusNotFound:            false,
		http.StatusForbidden:           false,
		http.StatusBadRequest:          false,
	}
	for code, want := range cases {
		require.Equal(t, want, (&StatusError{StatusCode: code}).Temporary(), "status %d", code)
	}
}

func TestRetryAfterHeader(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	resp := &http.Response{Header: http.Header{}}
	require.Zero(t, retryAfterHeader(resp, now))

	resp.Header.Set("Retry-After", "3")
	require.Equal(t, 3*time.Second, retryAfterHeader(resp, now))

	resp.Header.Set("Retry-After", now.Add(4*time.Second).Format(http.TimeFormat))
	require.Equal(t, 4*time.Second, retryAfterHeader(resp, now))

	resp.Header.Set("Retry-After", "soon")
	require.Zero(t, retryAfterHeader(resp, now))
}
