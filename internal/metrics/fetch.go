package metrics

import (
	"strconv"
	"time"

	"github.com/edgarlens/edgarlens/internal/observability"
)

// Upstream fetch metrics
const (
	FetchTotal        = "edgar_fetch_total"
	FetchDuration     = "edgar_fetch_duration_ms"
	CacheLookupsTotal = "edgar_cache_lookups_total"
	CacheSize         = "edgar_cache_entries"
	RetriesTotal      = "edgar_retries_total"
	ExhaustedTotal    = "edgar_retries_exhausted_total"
	LimiterWaitTotal  = "edgar_limiter_waits_total"
	LimiterWait       = "edgar_limiter_wait_ms"
)

// RecordFetch records one upstream GET and its outcome.
func RecordFetch(regime string, statusCode int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}

	_ = observability.TelemetrySystem.Counter(
		FetchTotal,
		1,
		map[string]string{
			"regime": regime,
			"status": status,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		FetchDuration,
		duration,
		map[string]string{
			"regime": regime,
		},
	)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(regime string, hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	_ = observability.TelemetrySystem.Counter(
		CacheLookupsTotal,
		1,
		map[string]string{
			"regime": regime,
			"result": result,
		},
	)
}

// SetCacheSize records the current number of cached responses.
func SetCacheSize(size int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(CacheSize, float64(size), nil)
	}
}

// RecordRetry records a retried attempt and its cause.
func RecordRetry(regime string, reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RetriesTotal,
			1,
			map[string]string{
				"regime": regime,
				"reason": reason,
			},
		)
	}
}

// RecordRetriesExhausted records a fetch that used its whole retry budget.
func RecordRetriesExhausted(regime string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ExhaustedTotal,
			1,
			map[string]string{"regime": regime},
		)
	}
}

// RecordLimiterWait records the delay the rate limiter imposed on one request.
// Zero waits are not counted.
func RecordLimiterWait(regime string, wait time.Duration) {
	if observability.TelemetrySystem == nil || wait <= 0 {
		return
	}

	tags := map[string]string{"regime": regime}
	_ = observability.TelemetrySystem.Counter(LimiterWaitTotal, 1, tags)
	_ = observability.TelemetrySystem.Histogram(LimiterWait, wait, tags)
}
