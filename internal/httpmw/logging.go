package httpmw

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/linnemanlabs-api/internal/log"
)

// WithLogger derives a request-scoped logger carrying the correlation
// identifiers and request shape, and stores it in the context so every
// downstream log line is automatically correlated. The active span, if
// recording, gets the same identity attributes.
//
// User-supplied values other than user-agent are intentionally excluded to
// prevent log injection and PII leaks.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			rc, _ := RequestContextFromContext(ctx)
			addr := ClientAddrFromContext(ctx)

			if span := trace.SpanFromContext(ctx); span != nil && span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", rc.RequestID),
					attribute.String("correlation_id", rc.CorrelationID),
					attribute.String("client.address", addr.IPv4),
					attribute.String("url.scheme", schemeFromRequest(r)),
				)
			}

			fields := []any{
				"request_id", rc.RequestID,
				"correlation_id", rc.CorrelationID,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
			}
			if addr.IPv4 != "" {
				fields = append(fields, "client.ipv4", addr.IPv4)
			}
			if addr.IPv6 != "" {
				fields = append(fields, "client.ipv6", addr.IPv6)
			}

			L := base.With(fields...)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

func schemeFromRequest(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		parts := strings.Split(xf, ",")
		return strings.TrimSpace(parts[0])
	}
	if r.URL != nil && r.URL.Scheme != "" {
		return r.URL.Scheme
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
