package httpmw

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Canonical correlation headers. X-Request-Id doubles as the legacy inbound
// alias for correlation propagation from older callers.
const (
	HeaderRequestID     = "X-Request-Id"
	HeaderCorrelationID = "X-Correlation-Id"
)

// RequestContext carries the per-request identifiers and start time stamped
// by Correlation before any handler runs. Immutable once stamped.
type RequestContext struct {
	RequestID     string
	CorrelationID string
	StartTime     time.Time
}

type requestContextKey struct{}

// WithRequestContext attaches rc to the context.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestContextFromContext returns the stamped RequestContext and whether
// one was present. Callers must tolerate ok=false and fall back to
// time.Now() for durations.
func RequestContextFromContext(ctx context.Context) (RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(RequestContext)
	return rc, ok
}

// Correlation middleware runs first on every request:
//   - generates a fresh v4 UUID request ID
//   - adopts an inbound correlation ID (canonical header, then legacy alias),
//     defaulting to the request ID when absent
//   - stamps the start time used for duration measurement downstream
//   - echoes both identifiers on the response before the handler runs, so
//     callers can read them back even on early failures
//
// It never blocks and never fails; malformed headers fall back to defaults.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := RequestContext{
			RequestID: uuid.NewString(),
			StartTime: time.Now(),
		}

		rc.CorrelationID = inboundCorrelationID(r.Header)
		if rc.CorrelationID == "" {
			rc.CorrelationID = rc.RequestID
		}

		w.Header().Set(HeaderRequestID, rc.RequestID)
		w.Header().Set(HeaderCorrelationID, rc.CorrelationID)

		next.ServeHTTP(w, r.WithContext(WithRequestContext(r.Context(), rc)))
	})
}

// inboundCorrelationID returns the first value of the canonical header, then
// the legacy alias, or "".
func inboundCorrelationID(h http.Header) string {
	for _, name := range []string{HeaderCorrelationID, HeaderRequestID} {
		if vals := h.Values(name); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return ""
}
