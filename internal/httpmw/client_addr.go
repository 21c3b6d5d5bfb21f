package httpmw

import (
	"context"
	"net/http"

	"github.com/keithlinneman/linnemanlabs-api/internal/clientaddr"
)

type clientAddrKey struct{}

// WithClientAddr attaches resolved client addresses to the context.
func WithClientAddr(ctx context.Context, info clientaddr.Info) context.Context {
	return context.WithValue(ctx, clientAddrKey{}, info)
}

// ClientAddrFromContext returns the resolved addresses, or a zero Info when
// the middleware did not run.
func ClientAddrFromContext(ctx context.Context) clientaddr.Info {
	info, _ := ctx.Value(clientAddrKey{}).(clientaddr.Info)
	return info
}

// ClientAddr resolves client IPv4/IPv6 addresses once per request and stores
// them in the context for response metadata, logging, and rate limiting.
func ClientAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := clientaddr.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(WithClientAddr(r.Context(), info)))
	})
}
