package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/edgarlens/edgarlens/internal/observability"
)

// RequestIDHeader carries the correlation id in and out of the proxy.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied ids; they end up in every upstream
// fetch log line for the request.
const maxRequestIDLen = 128

// RequestID resolves the correlation id for a request and stores it with
// observability.WithRequestID, so error envelopes and the EDGAR executor's
// retry and exhaustion logs share one id per inbound call.
//
// A usable X-Request-ID header wins, then chi's generated id, then a new UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := sanitizeRequestID(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = chimw.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), requestID)))
	})
}

// GetRequestID returns the id stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	return observability.RequestID(ctx)
}

func sanitizeRequestID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxRequestIDLen {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}
