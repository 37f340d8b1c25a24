package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/edgarlens/edgarlens/internal/errors"
	"github.com/edgarlens/edgarlens/internal/metrics"
)

// Recovery turns a handler panic into a critical INTERNAL_ERROR envelope.
// The panic value and stack are logged; the caller only sees the request id.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			metrics.RecordPanic()

			envelope := apperrors.NewInternalError("internal server error").
				WithCorrelationID(GetRequestID(r.Context()))
			envelope, _ = envelope.WithContext(map[string]interface{}{
				"panic":       fmt.Sprint(recovered),
				"path":        r.URL.Path,
				"stack_trace": string(debug.Stack()),
			})
			envelope, _ = envelope.WithSeverity(gferrors.SeverityCritical)

			apperrors.RespondWithEnvelope(w, r, envelope)
		}()

		next.ServeHTTP(w, r)
	})
}
