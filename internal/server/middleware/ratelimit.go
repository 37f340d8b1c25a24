package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/observability"
)

// RateLimit sheds inbound requests above perSecond (with the given burst)
// with a 429 RATE_LIMITED envelope. It protects the shared upstream quota:
// callers over the limit are refused here instead of queueing on the EDGAR
// limiter. A non-positive perSecond disables the middleware.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = int(math.Ceil(perSecond))
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reservation := limiter.Reserve()
			if !reservation.OK() {
				rejectRateLimited(w, r, time.Second)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				rejectRateLimited(w, r, delay)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	requestID := GetRequestID(r.Context())
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	envelope := apperrors.NewRateLimitedError(fmt.Sprintf("too many requests, retry in %ds", seconds)).
		WithCorrelationID(requestID).
		WithDetails(map[string]interface{}{"retry_after_seconds": seconds})

	if observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Request rejected by rate limit",
			zap.String("path", r.URL.Path),
			zap.Duration("retry_after", retryAfter),
			zap.String("requestID", requestID))
	}

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	apperrors.RespondWithEnvelope(w, r, envelope)
}
