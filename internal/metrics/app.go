package metrics

import (
	"sync/atomic"
	"time"

	"github.com/edgarlens/edgarlens/internal/observability"
)

// Client operation and service lifecycle metrics
const (
	OperationsTotal     = "edgar_operations_total"
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
	ServerUptime        = "app_server_uptime_seconds"
)

// RecordOperation records one public client operation (submissions, frames,
// ...) and whether it produced a result.
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

var serverStartedAt atomic.Int64

// SetServerStartTime records the serve start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	serverStartedAt.Store(timestamp)
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// SetServerUptime records the serve uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(seconds), nil)
	}
}

// RefreshServerUptime updates the uptime gauge relative to the recorded start
// time. It is a no-op before SetServerStartTime.
func RefreshServerUptime(now time.Time) {
	started := serverStartedAt.Load()
	if started == 0 {
		return
	}
	SetServerUptime(now.Unix() - started)
}
