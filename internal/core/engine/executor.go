package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/core/cache"
	"github.com/edgarlens/edgarlens/internal/metrics"
	"github.com/edgarlens/edgarlens/internal/observability"
)

// DefaultUserAgent is sent on every upstream request.
const DefaultUserAgent = "Mozilla/5.0 (compatible; SEC-API/1.0; +https://www.sec.gov)"

// DefaultTimeout bounds a single upstream GET.
const DefaultTimeout = 10 * time.Second

var (
	// ErrRetriesExhausted is matched by every RetryError.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrDecode marks a 2xx response whose body is not valid JSON.
	ErrDecode = errors.New("decode response")
)

// RetryError is returned when every attempt of a fetch failed transiently.
type RetryError struct {
	Path     string
	Attempts int
	Last     error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("fetch %s: retries exhausted after %d attempts: %v", e.Path, e.Attempts, e.Last)
}

// Unwrap returns the last underlying failure.
func (e *RetryError) Unwrap() error {
	return e.Last
}

// Is lets errors.Is(err, ErrRetriesExhausted) match.
func (e *RetryError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy returns three attempts with exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2,
	}
}

// backOff returns the exponential schedule for p. Jitter is off so the
// schedule is exactly InitialBackoff * Multiplier^n, capped at MaxBackoff.
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	p = p.normalized()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	b.MaxInterval = p.MaxBackoff
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = def.Attempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = def.MaxBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// Fetcher returns the decoded JSON body for an endpoint path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (any, error)
}

// Executor performs rate-limited, cached, retried GETs against one host.
type Executor struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Limiter   Limiter
	Cache     *cache.Cache
	// Log receives Retry-After backoff so other callers sharing it hold off too.
	Log    *RequestLog
	Retry  RetryPolicy
	Logger *logging.Logger
	// Regime tags metrics and logs, e.g. "blocking" or "cooperative".
	Regime string
	Clock  func() time.Time
	// OnRetry, when set, observes each scheduled retry and its delay.
	OnRetry func(attempt int, wait time.Duration)
}

// Fetch returns the decoded body for path. A cache hit involves neither the
// limiter nor the network.
func (e *Executor) Fetch(ctx context.Context, path string) (any, error) {
	if e == nil {
		return nil, errors.New("executor is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if e.Cache.Enabled() {
		if value, ok := e.Cache.Get(path); ok {
			metrics.RecordCacheLookup(e.regime(), true)
			e.debug("cache hit", zap.String("path", path))
			return value, nil
		}
		metrics.RecordCacheLookup(e.regime(), false)
	}

	target, err := e.target(path)
	if err != nil {
		return nil, err
	}

	policy := e.Retry.normalized()
	requestID := observability.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	var (
		attempts int
		last     error
		terminal error
	)
	operation := func() (any, error) {
		attempts++
		if e.Limiter != nil {
			if err := e.Limiter.Acquire(ctx); err != nil {
				terminal = err
				return nil, backoff.Permanent(err)
			}
		}

		body, err := e.get(ctx, target)
		if err == nil {
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			terminal = ctxErr
			return nil, backoff.Permanent(ctxErr)
		}
		if !retryable(err) {
			terminal = err
			return nil, backoff.Permanent(err)
		}
		last = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
			e.Log.Backoff(e.now().Add(statusErr.RetryAfter))
			return nil, &backoff.RetryAfterError{Duration: statusErr.RetryAfter}
		}
		return nil, err
	}
	notify := func(_ error, wait time.Duration) {
		metrics.RecordRetry(e.regime(), retryReason(last))
		e.debug("retrying upstream request",
			zap.String("request_id", requestID),
			zap.String("path", path),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(last),
		)
		if e.OnRetry != nil {
			e.OnRetry(attempts, wait)
		}
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(uint(policy.Attempts)),
		backoff.WithNotify(notify),
	)
	if err == nil {
		e.Cache.Put(path, body)
		if e.Cache.Enabled() {
			metrics.SetCacheSize(e.Cache.Size())
		}
		return body, nil
	}
	if terminal != nil {
		return nil, terminal
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if last == nil {
		return nil, err
	}

	metrics.RecordRetriesExhausted(e.regime())
	if e.Logger != nil {
		e.Logger.Warn("upstream retries exhausted",
			zap.String("request_id", requestID),
			zap.String("path", path),
			zap.Int("attempts", attempts),
			zap.Error(last),
		)
	}
	return nil, &RetryError{Path: path, Attempts: attempts, Last: last}
}

// CloseIdleConnections releases pooled transport connections.
func (e *Executor) CloseIdleConnections() {
	if e != nil && e.Client != nil {
		e.Client.CloseIdleConnections()
	}
}

func (e *Executor) get(ctx context.Context, target string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent())
	req.Header.Set("Accept", "application/json")

	started := e.now()
	resp, err := e.client().Do(req)
	if err != nil {
		metrics.RecordFetch(e.regime(), 0, e.now().Sub(started))
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	metrics.RecordFetch(e.regime(), resp.StatusCode, e.now().Sub(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        target,
			RetryAfter: retryAfterHeader(resp, e.now()),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w from %s: %w", ErrDecode, target, err)
	}
	return body, nil
}

func (e *Executor) target(path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(e.BaseURL), "/")
	if base == "" {
		return "", errors.New("base url is required")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := base + path
	if _, err := url.Parse(target); err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", target, err)
	}
	return target, nil
}

func (e *Executor) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (e *Executor) userAgent() string {
	if strings.TrimSpace(e.UserAgent) != "" {
		return e.UserAgent
	}
	return DefaultUserAgent
}

func (e *Executor) regime() string {
	if e.Regime != "" {
		return e.Regime
	}
	return "blocking"
}

func (e *Executor) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Executor) debug(msg string, fields ...zap.Field) {
	if e.Logger != nil {
		e.Logger.Debug(msg, fields...)
	}
}

// retryable reports whether err is transient. Transport failures are, decode
// failures and non-temporary statuses are not.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, ErrDecode)
}

func retryReason(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("status_%d", statusErr.StatusCode)
	}
	return "transport"
}

func retryAfterHeader(resp *http.Response, now time.Time) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}

	retry := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if retry == "" {
		return 0
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil && seconds > 0 {
		return seconds
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := parsed.Sub(now); wait > 0 {
			return wait
		}
	}
	return 0
}
