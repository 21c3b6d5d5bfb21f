package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/linnemanlabs-api/internal/health"
	"github.com/keithlinneman/linnemanlabs-api/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-api/internal/i18n"
	"github.com/keithlinneman/linnemanlabs-api/internal/xerrors"
)

// DefaultMaxCaptureBytes caps retained request bodies when Options leaves
// MaxCaptureBytes unset.
const DefaultMaxCaptureBytes = 64 << 10

// NewHandler builds the API handler: routes plus the full middleware stack.
// main() owns *http.Server so it can do graceful shutdown.
func NewHandler(opts Options) http.Handler {
	// chi router
	r := chi.NewRouter()

	// API responses are JSON; nothing else worth compressing
	r.Use(middleware.Compress(5, "application/json"))

	// Annotate logger and tracer with http.route from chi route pattern if trace is recording
	r.Use(httpmw.AnnotateHTTPRoute)

	r.Use(httpmw.MaxBody(1 << 20)) // 1MB JSON bodies

	if opts.Health != nil {
		r.Get("/healthz", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/readyz", health.ReadyzHandler(opts.Readiness))
	}

	if opts.APIRoutes != nil {
		opts.APIRoutes(r)
	}

	// Unmatched routes and wrong methods render the standard error envelope
	// instead of chi's plain-text defaults.
	if opts.Responder != nil {
		r.NotFound(opts.Responder.NotFound())
		r.MethodNotAllowed(opts.Responder.MethodNotAllowed())
	}

	// Middleware (innermost first in wrapping order)
	var h http.Handler = r

	// Locale resolution innermost so handlers and the responder agree on lang
	h = i18n.ResolveLang(h)

	// Retain small JSON bodies so the responder can log them masked
	maxCapture := opts.MaxCaptureBytes
	if maxCapture == 0 {
		maxCapture = DefaultMaxCaptureBytes
	}
	h = httpmw.CaptureBody(maxCapture)(h)

	// Request-scoped logging (inner so it sees trace_id, etc)
	h = httpmw.WithLogger(opts.Logger)(h)

	// Metrics middleware for prometheus instrumentation
	if opts.MetricsMW != nil {
		h = opts.MetricsMW(h)
	}

	// add trace-id headers to any requests with a recording trace
	h = httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id")(h)

	// Decide which requests get traced
	shouldTrace := func(p string) bool {
		// dont trace favicon/robots.txt
		if p == "/favicon.ico" || p == "/robots.txt" {
			return false
		}
		// dont trace health checks (may re-visit in the future to sample at a really low rate)
		if p == "/healthz" || p == "/readyz" {
			return false
		}
		return true
	}

	h = otelhttp.NewHandler(
		h,
		"http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTrace(r.URL.Path)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute will rename the span later to the final route pattern
			return r.Method + " " + r.URL.Path
		}),
		// WithPublicEndpointFn is the replacement for WithPublicEndpoint()
		otelhttp.WithPublicEndpointFn(func(r *http.Request) bool { return true }),
	)

	// Rate limiting (inside client address resolution so it keys on the resolved IP)
	if opts.RateLimitMW != nil {
		h = opts.RateLimitMW(h)
	}

	// Recovery sits inside correlation + client address so the rendered
	// envelope still carries request IDs and resolved addresses.
	if opts.UseRecoverMW {
		var render httpmw.PanicRenderer
		if opts.Responder != nil {
			render = opts.Responder.Error
		}
		h = httpmw.Recover(opts.Logger, opts.OnPanic, render)(h)
	}

	// Client address resolution (before rate limiter and the responder need it)
	h = httpmw.ClientAddr(h)

	// Correlation stamps request/correlation IDs and the start time
	// (outer so everything downstream sees them)
	h = httpmw.Correlation(h)

	// Security headers outermost to ensure they are served on every response
	h = httpmw.SecurityHeaders(h)

	return h
}

// Server timeout defaults, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start public HTTP server
// Returns stop(ctx) for graceful shutdown
func Start(ctx context.Context, opts Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf(":%d", port)

	handler := NewHandler(opts)
	srv := NewServer(addr, handler)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp4", addr)

	if err != nil {
		return nil, xerrors.EnsureTrace(err)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
