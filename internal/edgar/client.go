// Package edgar is the public client for the SEC EDGAR data service. A Client
// issues blocking calls; Client.Async returns a view of the same client that
// routes calls through the cooperative limiter for concurrent use. Both share
// one response cache and one request log, so they draw on a single quota.
package edgar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/core"
	"github.com/edgarlens/edgarlens/internal/core/cache"
	"github.com/edgarlens/edgarlens/internal/core/engine"
	"github.com/edgarlens/edgarlens/internal/metrics"
)

const (
	// DefaultBaseURL hosts submissions and XBRL endpoints.
	DefaultBaseURL = "https://data.sec.gov"
	// DefaultFilesURL hosts the ticker index.
	DefaultFilesURL = "https://www.sec.gov"
)

const (
	regimeBlocking    = "blocking"
	regimeCooperative = "cooperative"
)

type settings struct {
	baseURL         string
	filesURL        string
	userAgent       string
	timeout         time.Duration
	maxRequests     int
	window          time.Duration
	smoothing       bool
	cacheEnabled    bool
	cacheSize       int
	retry           engine.RetryPolicy
	httpClient      *http.Client
	asyncHTTPClient *http.Client
	logger          *logging.Logger
	clock           func() time.Time
	workers         int
}

func defaultSettings() settings {
	return settings{
		baseURL:      DefaultBaseURL,
		filesURL:     DefaultFilesURL,
		userAgent:    engine.DefaultUserAgent,
		timeout:      engine.DefaultTimeout,
		maxRequests:  engine.DefaultMaxRequests,
		window:       engine.DefaultWindow,
		cacheEnabled: true,
		cacheSize:    cache.DefaultSize,
		retry:        engine.DefaultRetryPolicy(),
		workers:      engine.DefaultConcurrency,
	}
}

// Option configures a Client.
type Option func(*settings)

// WithCache sets cache mode and capacity.
func WithCache(enabled bool, size int) Option {
	return func(s *settings) {
		s.cacheEnabled = enabled
		if size > 0 {
			s.cacheSize = size
		}
	}
}

// WithBaseURL overrides the data host.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) { s.baseURL = baseURL }
}

// WithFilesURL overrides the host serving the ticker index.
func WithFilesURL(filesURL string) Option {
	return func(s *settings) { s.filesURL = filesURL }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(s *settings) { s.userAgent = userAgent }
}

// WithTimeout bounds each upstream GET.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithRate sets the quota: at most maxRequests per rolling window.
func WithRate(maxRequests int, window time.Duration) Option {
	return func(s *settings) {
		if maxRequests > 0 {
			s.maxRequests = maxRequests
		}
		if window > 0 {
			s.window = window
		}
	}
}

// WithSmoothing enables the proportional micro-delay of the cooperative path.
func WithSmoothing(enabled bool) Option {
	return func(s *settings) { s.smoothing = enabled }
}

// WithRetry overrides the retry policy.
func WithRetry(policy engine.RetryPolicy) Option {
	return func(s *settings) { s.retry = policy }
}

// WithHTTPClient sets the transport of the blocking path.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

// WithAsyncHTTPClient sets the transport of the cooperative path.
func WithAsyncHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.asyncHTTPClient = client }
}

// WithLogger attaches a logger. A nil logger disables logging.
func WithLogger(logger *logging.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithClock replaces the time source of the limiters and executors.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) { s.clock = clock }
}

// WithWorkers sets the fan-out width of batch helpers.
func WithWorkers(workers int) Option {
	return func(s *settings) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// Client is the blocking EDGAR client. Each instance owns its cache, request
// log and permit pool; instances never share quota.
type Client struct {
	settings settings
	cache    *cache.Cache
	log      *engine.RequestLog

	data  *engine.Executor
	files *engine.Executor
	async *AsyncClient
}

// New builds a client.
func New(opts ...Option) *Client {
	s := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: s.timeout}
	}
	if s.asyncHTTPClient == nil {
		s.asyncHTTPClient = &http.Client{Timeout: s.timeout}
	}

	c := &Client{
		settings: s,
		cache:    cache.New(s.cacheSize, s.cacheEnabled),
		log:      engine.NewRequestLog(s.maxRequests, s.window),
	}

	blocking := engine.NewBlockingLimiter(c.log)
	blocking.Clock = s.clock
	blocking.OnAdmit = c.admitted(regimeBlocking)

	cooperative := engine.NewCooperativeLimiter(c.log)
	cooperative.Clock = s.clock
	cooperative.Smoothing = s.smoothing
	cooperative.OnAdmit = c.admitted(regimeCooperative)

	c.data = c.executor(s.baseURL, s.httpClient, blocking, regimeBlocking)
	c.files = c.executor(s.filesURL, s.httpClient, blocking, regimeBlocking)
	c.async = &AsyncClient{
		client: c,
		data:   c.executor(s.baseURL, s.asyncHTTPClient, cooperative, regimeCooperative),
		files:  c.executor(s.filesURL, s.asyncHTTPClient, cooperative, regimeCooperative),
	}
	return c
}

// NewFromConfig builds a client from loaded configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base := []Option{
		WithBaseURL(cfg.Client.BaseURL),
		WithFilesURL(cfg.Client.FilesURL),
		WithUserAgent(cfg.Client.UserAgent),
		WithTimeout(cfg.Client.Timeout),
		WithRate(cfg.Client.MaxRequestsPerSecond, cfg.Client.Window),
		WithSmoothing(cfg.Client.Smoothing),
		WithCache(cfg.Cache.Enabled, cfg.Cache.Size),
		WithRetry(engine.RetryPolicy{
			Attempts:       cfg.Retry.Attempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
			Multiplier:     cfg.Retry.Multiplier,
		}),
		WithWorkers(cfg.Workers),
	}
	return New(append(base, opts...)...), nil
}

func (c *Client) executor(baseURL string, client *http.Client, limiter engine.Limiter, regime string) *engine.Executor {
	return &engine.Executor{
		BaseURL:   baseURL,
		UserAgent: c.settings.userAgent,
		Client:    client,
		Limiter:   limiter,
		Cache:     c.cache,
		Log:       c.log,
		Retry:     c.settings.retry,
		Logger:    c.settings.logger,
		Regime:    regime,
		Clock:     c.settings.clock,
	}
}

func (c *Client) admitted(regime string) func(time.Duration) {
	return func(wait time.Duration) {
		if wait <= 0 {
			return
		}
		metrics.RecordLimiterWait(regime, wait)
		if c.settings.logger != nil {
			c.settings.logger.Debug("rate limiter delayed request",
				zap.String("regime", regime),
				zap.Duration("wait", wait),
			)
		}
	}
}

// Async returns the cooperative view of this client.
func (c *Client) Async() *AsyncClient {
	return c.async
}

// Cache exposes the shared response cache for direct inspection and keyed
// access. Lookup and Delete report a missing key as *cache.KeyError.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// RequestLog exposes the shared request log.
func (c *Client) RequestLog() *engine.RequestLog {
	return c.log
}

// Status is a point-in-time view of the client's quota and cache.
type Status struct {
	QuotaUsed int            `json:"quota_used"`
	QuotaMax  int            `json:"quota_max"`
	Window    string         `json:"window"`
	Cache     cache.Snapshot `json:"cache"`
}

// Saturated reports whether the current window has no requests left.
func (s Status) Saturated() bool {
	return s.QuotaMax > 0 && s.QuotaUsed >= s.QuotaMax
}

// Status reports the requests retained in the current window against the
// ceiling, plus cache counters.
func (c *Client) Status() Status {
	now := time.Now().UTC()
	if c.settings.clock != nil {
		now = c.settings.clock()
	}
	return Status{
		QuotaUsed: c.log.Len(now),
		QuotaMax:  c.log.Max(),
		Window:    c.log.Window().String(),
		Cache:     c.cache.Stats(),
	}
}

func (c *Client) String() string {
	mode := "disabled"
	if c.cache.Enabled() {
		mode = "enabled"
	}
	return fmt.Sprintf("EDGAR client(base_url=%s, cache=%s, cache_size=%d, max_requests_per_second=%d)",
		c.settings.baseURL, mode, c.cache.Capacity(), c.settings.maxRequests)
}

// Close clears the cache and releases idle connections on both transports.
func (c *Client) Close() error {
	c.cache.Clear()
	c.data.CloseIdleConnections()
	c.async.data.CloseIdleConnections()
	return nil
}

// Submissions returns the filing history of an entity.
func (c *Client) Submissions(ctx context.Context, sel Selector) (*core.SubmissionHistory, error) {
	return submissions(ctx, c.data, c.files, sel)
}

// CompanyConcept returns every disclosure an entity made for one concept.
func (c *Client) CompanyConcept(ctx context.Context, sel Selector, taxonomy, tag string) (*core.CompanyConcept, error) {
	return companyConcept(ctx, c.data, c.files, sel, taxonomy, tag)
}

// CompanyFacts returns every concept an entity has disclosed.
func (c *Client) CompanyFacts(ctx context.Context, sel Selector) (*core.CompanyFacts, error) {
	return companyFacts(ctx, c.data, c.files, sel)
}

// Frames returns one concept across entities for a calendar period. period is
// a CY string, a YYYY-MM-DD string or a time.Time.
func (c *Client) Frames(ctx context.Context, taxonomy, tag, unit string, period any, instantaneous bool) (*core.Frame, error) {
	return frames(ctx, c.data, taxonomy, tag, unit, period, instantaneous)
}

// GetCIK resolves a zero-padded CIK from the company index.
func (c *Client) GetCIK(ctx context.Context, lookup Lookup) (string, error) {
	return getCIK(ctx, c.files, lookup)
}

// Universe returns every company in the ticker index.
func (c *Client) Universe(ctx context.Context) ([]core.Company, error) {
	return universe(ctx, c.files)
}

// The operations below are shared by the blocking and cooperative views; they
// differ only in the executors passed in.

func submissions(ctx context.Context, data, files engine.Fetcher, sel Selector) (*core.SubmissionHistory, error) {
	cik, err := resolveSelector(ctx, files, sel)
	if err != nil {
		return nil, err
	}
	raw, err := data.Fetch(ctx, submissionsPath(cik))
	if err != nil {
		metrics.RecordOperation("submissions", false)
		return nil, err
	}
	out, err := core.DecodeSubmissionHistory(raw)
	metrics.RecordOperation("submissions", err == nil)
	return out, err
}

func companyConcept(ctx context.Context, data, files engine.Fetcher, sel Selector, taxonomy, tag string) (*core.CompanyConcept, error) {
	if err := required("taxonomy", taxonomy); err != nil {
		return nil, err
	}
	if err := required("tag", tag); err != nil {
		return nil, err
	}
	cik, err := resolveSelector(ctx, files, sel)
	if err != nil {
		return nil, err
	}
	raw, err := data.Fetch(ctx, companyConceptPath(cik, taxonomy, tag))
	if err != nil {
		metrics.RecordOperation("company_concept", false)
		return nil, err
	}
	out, err := core.DecodeCompanyConcept(raw)
	metrics.RecordOperation("company_concept", err == nil)
	return out, err
}

func companyFacts(ctx context.Context, data, files engine.Fetcher, sel Selector) (*core.CompanyFacts, error) {
	cik, err := resolveSelector(ctx, files, sel)
	if err != nil {
		return nil, err
	}
	raw, err := data.Fetch(ctx, companyFactsPath(cik))
	if err != nil {
		metrics.RecordOperation("company_facts", false)
		return nil, err
	}
	out, err := core.DecodeCompanyFacts(raw)
	metrics.RecordOperation("company_facts", err == nil)
	return out, err
}

func frames(ctx context.Context, data engine.Fetcher, taxonomy, tag, unit string, period any, instantaneous bool) (*core.Frame, error) {
	for _, arg := range []struct{ name, value string }{{"taxonomy", taxonomy}, {"tag", tag}, {"unit", unit}} {
		if err := required(arg.name, arg.value); err != nil {
			return nil, err
		}
	}
	resolved, err := ResolvePeriod(period, instantaneous)
	if err != nil {
		return nil, err
	}
	raw, err := data.Fetch(ctx, framesPath(taxonomy, tag, unit, resolved))
	if err != nil {
		metrics.RecordOperation("frames", false)
		return nil, err
	}
	out, err := core.DecodeFrame(raw)
	metrics.RecordOperation("frames", err == nil)
	return out, err
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid(field, fmt.Sprintf("%s is required.", field))
	}
	return nil
}
