package edgar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edgarlens/edgarlens/internal/config"
	"github.com/edgarlens/edgarlens/internal/core/cache"
	"github.com/edgarlens/edgarlens/internal/core/engine"
)

const tickerIndex = `{
  "0": {"cik_str": 1045810, "ticker": "NVDA", "title": "NVIDIA CORP"},
  "1": {"cik_str": 789019, "ticker": "MSFT", "title": "MICROSOFT CORP"},
  "2": {"cik_str": 1744489, "ticker": "DIS", "title": "Walt Disney Co"},
  "3": {"cik_str": 1318605, "ticker": "TSLA", "title": "Tesla, Inc."}
}`

type fakeEDGAR struct {
	mu     sync.Mutex
	hits   map[string]int
	routes map[string]string
	status map[string]int
	agents []string
}

func newFakeEDGAR(t *testing.T) (*fakeEDGAR, *httptest.Server) {
	t.Helper()
	f := &fakeEDGAR{
		hits:   make(map[string]int),
		routes: make(map[string]string),
		status: make(map[string]int),
	}
	f.routes[TickerIndexPath] = tickerIndex
	f.routes["/submissions/CIK0001744489.json"] = `{"cik": "0001744489", "name": "Walt Disney Co", "tickers": ["DIS"], "filings": {"recent": {"form": ["10-K"], "isXBRL": [1]}, "files": []}}`
	f.routes["/submissions/CIK0000789019.json"] = `{"cik": "0000789019", "name": "MICROSOFT CORP", "tickers": ["MSFT"]}`
	f.routes["/api/xbrl/companyfacts/CIK0001744489.json"] = `{"cik": 1744489, "entityName": "WALT DISNEY CO/", "facts": {}}`
	f.routes["/api/xbrl/companyconcept/CIK0001744489/us-gaap/AccountsPayableCurrent.json"] = `{"cik": 1744489, "taxonomy": "us-gaap", "tag": "AccountsPayableCurrent", "entityName": "WALT DISNEY CO/", "units": {"USD": [{"end": "2019-09-28", "val": 9, "accn": "a", "form": "10-K", "filed": "2019-11-20"}]}}`
	f.routes["/api/xbrl/frames/us-gaap/AccountsPayableCurrent/USD/CY2019Q1I.json"] = `{"taxonomy": "us-gaap", "tag": "AccountsPayableCurrent", "ccp": "CY2019Q1I", "uom": "USD", "pts": 1, "data": [{"accn": "x", "cik": 1750, "entityName": "AAR CORP.", "loc": "US-IL", "end": "2019-02-28", "val": 1}]}`
	f.routes["/api/xbrl/frames/us-gaap/AccountsPayableCurrent/USD/CY2019Q1.json"] = `{"taxonomy": "us-gaap", "tag": "AccountsPayableCurrent", "ccp": "CY2019Q1", "uom": "USD", "pts": 0, "data": []}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.agents = append(f.agents, r.Header.Get("User-Agent"))
		body, ok := f.routes[r.URL.Path]
		status := f.status[r.URL.Path]
		f.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeEDGAR) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeEDGAR) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, hits := range f.hits {
		n += hits
	}
	return n
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(srv.URL),
		WithFilesURL(srv.URL),
		WithRetry(engine.RetryPolicy{Attempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}),
		WithRate(1000, time.Second),
	}
	return New(append(base, opts...)...)
}

func TestSubmissionsByTicker(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	history, err := client.Submissions(context.Background(), ByTicker("dis"))
	require.NoError(t, err)
	require.Equal(t, "Walt Disney Co", history.Name)
	require.Len(t, history.Filings, 1)
	require.True(t, history.Filings[0].IsXBRL)

	require.Equal(t, 1, fake.count(TickerIndexPath))
	require.Equal(t, 1, fake.count("/submissions/CIK0001744489.json"))
}

func TestSubmissionsByCIKPadsIdentifier(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	history, err := client.Submissions(context.Background(), ByCIK("789019"))
	require.NoError(t, err)
	require.Equal(t, "MICROSOFT CORP", history.Name)
	require.Equal(t, 0, fake.count(TickerIndexPath))
	require.Equal(t, []string{engine.DefaultUserAgent}, fake.agents)
}

func TestSelectorErrorsNeverTouchNetwork(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)
	ctx := context.Background()

	_, err := client.Submissions(ctx, Selector{Ticker: "DIS", CIK: "1744489"})
	require.EqualError(t, err, "Provide either ticker or central_index_key, not both.")

	_, err = client.CompanyFacts(ctx, Selector{})
	require.EqualError(t, err, "Provide either ticker or central_index_key.")

	_, err = client.CompanyConcept(ctx, ByCIK("12345678901"), "us-gaap", "Revenues")
	require.EqualError(t, err, "CIK must be 10 digits or less.")

	_, err = client.CompanyConcept(ctx, ByCIK("1744489"), "", "Revenues")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = client.Frames(ctx, "us-gaap", "AccountsPayableCurrent", "USD", 2019, false)
	require.EqualError(t, err, "period must be a string or datetime object.")

	require.Equal(t, 0, fake.total())
}

func TestCacheModes(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled serves the second call from cache", func(t *testing.T) {
		fake, srv := newFakeEDGAR(t)
		client := newTestClient(srv)

		first, err := client.CompanyFacts(ctx, ByCIK("1744489"))
		require.NoError(t, err)
		second, err := client.CompanyFacts(ctx, ByCIK("1744489"))
		require.NoError(t, err)

		require.Equal(t, first, second)
		require.Equal(t, 1, fake.count("/api/xbrl/companyfacts/CIK0001744489.json"))
		require.True(t, client.Cache().Contains("/api/xbrl/companyfacts/CIK0001744489.json"))
	})

	t.Run("disabled always goes to the network", func(t *testing.T) {
		fake, srv := newFakeEDGAR(t)
		client := newTestClient(srv, WithCache(false, 8))

		for i := 0; i < 2; i++ {
			_, err := client.CompanyFacts(ctx, ByCIK("1744489"))
			require.NoError(t, err)
		}
		require.Equal(t, 2, fake.count("/api/xbrl/companyfacts/CIK0001744489.json"))
		require.Equal(t, 0, client.Cache().Size())
	})

	t.Run("blocking and cooperative paths share the cache", func(t *testing.T) {
		fake, srv := newFakeEDGAR(t)
		client := newTestClient(srv)

		_, err := client.Submissions(ctx, ByCIK("1744489"))
		require.NoError(t, err)
		_, err = client.Async().Submissions(ctx, ByCIK("1744489"))
		require.NoError(t, err)
		require.Equal(t, 1, fake.count("/submissions/CIK0001744489.json"))
	})
}

func TestCompanyConcept(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	concept, err := client.CompanyConcept(context.Background(), ByTicker("DIS"), "us-gaap", "AccountsPayableCurrent")
	require.NoError(t, err)
	require.Equal(t, "1744489", concept.CIK)
	require.Len(t, concept.Units, 1)
	require.Equal(t, "USD", concept.Units[0].Unit)
}

func TestFramesInstantaneousIsDistinctKey(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)
	ctx := context.Background()

	instant, err := client.Frames(ctx, "us-gaap", "AccountsPayableCurrent", "USD", "CY2019Q1", true)
	require.NoError(t, err)
	require.Equal(t, "CY2019Q1I", instant.CCP)
	require.Len(t, instant.Disclosures, 1)

	duration, err := client.Frames(ctx, "us-gaap", "AccountsPayableCurrent", "USD", time.Date(2019, time.February, 1, 0, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Equal(t, "CY2019Q1", duration.CCP)

	require.Equal(t, 1, fake.count("/api/xbrl/frames/us-gaap/AccountsPayableCurrent/USD/CY2019Q1I.json"))
	require.Equal(t, 1, fake.count("/api/xbrl/frames/us-gaap/AccountsPayableCurrent/USD/CY2019Q1.json"))
	require.Equal(t, 2, client.Cache().Size())
}

func TestGetCIK(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	client := newTestClient(srv)
	ctx := context.Background()

	cik, err := client.GetCIK(ctx, Lookup{Ticker: "nvda"})
	require.NoError(t, err)
	require.Equal(t, "0001045810", cik)

	cik, err = client.GetCIK(ctx, Lookup{SearchText: "microsoft"})
	require.NoError(t, err)
	require.Equal(t, "0000789019", cik)

	_, err = client.GetCIK(ctx, Lookup{Ticker: "AAPL"})
	require.ErrorIs(t, err, ErrNotFound)
	require.EqualError(t, err, "Ticker 'AAPL' not found")

	_, err = client.GetCIK(ctx, Lookup{SearchText: "foobar"})
	require.EqualError(t, err, "Search text 'foobar' not found")

	_, err = client.GetCIK(ctx, Lookup{Ticker: "TSLA", SearchText: "tesla"})
	require.EqualError(t, err, "Provide exactly one of ticker or search_text.")
}

func TestUniverse(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	companies, err := client.Async().Universe(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 4)
	require.Equal(t, "1045810", companies[0].CIK)
	require.Equal(t, "MSFT", companies[1].Ticker)
	require.Equal(t, "Tesla, Inc.", companies[3].Title)

	_, err = client.GetCIK(context.Background(), Lookup{Ticker: "TSLA"})
	require.NoError(t, err)
	require.Equal(t, 1, fake.count(TickerIndexPath))
}

func TestNotFoundIsTerminal(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	_, err := client.Submissions(context.Background(), ByCIK("42"))
	var statusErr *engine.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.Equal(t, 1, fake.count("/submissions/CIK0000000042.json"))
}

func TestServerErrorsExhaustRetries(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	fake.status["/submissions/CIK0001744489.json"] = http.StatusServiceUnavailable
	client := newTestClient(srv)

	_, err := client.Async().Submissions(context.Background(), ByCIK("1744489"))
	require.ErrorIs(t, err, engine.ErrRetriesExhausted)
	require.Equal(t, 2, fake.count("/submissions/CIK0001744489.json"))
	require.False(t, client.Cache().Contains("/submissions/CIK0001744489.json"))
}

func TestSubmissionsBatch(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	items, err := client.Async().SubmissionsBatch(context.Background(), []Selector{
		ByTicker("DIS"),
		{Ticker: "MSFT", CIK: "789019"},
		ByCIK("789019"),
	}, engine.BatchOptions{Concurrency: 3})
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NoError(t, items[0].Err)
	require.Equal(t, "Walt Disney Co", items[0].Value.Name)
	require.Equal(t, "ticker:DIS", items[0].Key)

	require.ErrorIs(t, items[1].Err, ErrInvalidInput)

	require.NoError(t, items[2].Err)
	require.Equal(t, "MICROSOFT CORP", items[2].Value.Name)
}

func TestCompanyFactsBatchThroughCooperativeLimiter(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	client := newTestClient(srv, WithRate(10, time.Second))

	items, err := client.Async().CompanyFactsBatch(context.Background(), []Selector{ByCIK("1744489"), ByTicker("DIS")}, engine.BatchOptions{})
	require.NoError(t, err)
	for _, item := range items {
		require.NoError(t, item.Err)
		require.Equal(t, "WALT DISNEY CO/", item.Value.EntityName)
	}
	require.LessOrEqual(t, client.RequestLog().Len(time.Now().UTC()), 10)
}

func TestClientsHaveIndependentQuota(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	first := newTestClient(srv)
	second := newTestClient(srv)

	_, err := first.Submissions(context.Background(), ByCIK("1744489"))
	require.NoError(t, err)

	now := time.Now().UTC()
	require.Equal(t, 1, first.RequestLog().Len(now))
	require.Equal(t, 0, second.RequestLog().Len(now))
	require.NotSame(t, first.Cache(), second.Cache())
}

func TestCacheKeyAccess(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	_, err := client.Cache().Lookup("/submissions/CIK0001744489.json")
	require.ErrorIs(t, err, cache.ErrNotCached)
	require.EqualError(t, err, "'/submissions/CIK0001744489.json' not found in cache.")

	_, err = client.Submissions(context.Background(), ByCIK("1744489"))
	require.NoError(t, err)

	raw, err := client.Cache().Lookup("/submissions/CIK0001744489.json")
	require.NoError(t, err)
	require.NotNil(t, raw)
	require.NoError(t, client.Cache().Delete("/submissions/CIK0001744489.json"))
	require.ErrorIs(t, client.Cache().Delete("/submissions/CIK0001744489.json"), cache.ErrNotCached)
}

func TestStringAndClose(t *testing.T) {
	_, srv := newFakeEDGAR(t)
	client := newTestClient(srv, WithCache(true, 32), WithRate(10, time.Second))

	desc := client.String()
	require.True(t, strings.Contains(desc, "base_url="+srv.URL), desc)
	require.Contains(t, desc, "cache=enabled")
	require.Contains(t, desc, "cache_size=32")
	require.Contains(t, desc, "max_requests_per_second=10")

	_, err := client.Submissions(context.Background(), ByCIK("1744489"))
	require.NoError(t, err)
	require.Equal(t, 1, client.Cache().Size())

	require.NoError(t, client.Close())
	require.Equal(t, 0, client.Cache().Size())
}

func TestNewFromConfig(t *testing.T) {
	_, srv := newFakeEDGAR(t)

	cfg := config.Default()
	cfg.Client.BaseURL = srv.URL
	cfg.Client.FilesURL = srv.URL
	cfg.Cache.Enabled = false
	cfg.Client.MaxRequestsPerSecond = 3

	client, err := NewFromConfig(cfg)
	require.NoError(t, err)
	require.False(t, client.Cache().Enabled())
	require.Equal(t, 3, client.RequestLog().Max())

	cik, err := client.GetCIK(context.Background(), Lookup{Ticker: "DIS"})
	require.NoError(t, err)
	require.Equal(t, "0001744489", cik)

	cfg.Client.MaxRequestsPerSecond = 0
	_, err = NewFromConfig(cfg)
	require.Error(t, err)
}

func TestCancelledContextSkipsNetwork(t *testing.T) {
	fake, srv := newFakeEDGAR(t)
	client := newTestClient(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Submissions(ctx, ByCIK("1744489"))
	require.True(t, errors.Is(err, context.Canceled), "got %v", err)
	require.Equal(t, 0, fake.total())
}
