package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-api/internal/health"
	"github.com/keithlinneman/linnemanlabs-api/internal/log"
	"github.com/keithlinneman/linnemanlabs-api/internal/respond"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func() // usually a metrics counter, fires before the panic renders

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler

	Health    health.Probe
	Readiness health.Probe

	// Responder owns every terminal envelope: route handlers call it, and
	// it backs the router's 404/405 fallbacks and the panic renderer.
	Responder *respond.Responder

	// APIRoutes registers the service's routes on the router.
	APIRoutes func(chi.Router)

	// MaxCaptureBytes caps JSON request bodies retained for masked logging.
	// Zero means the default (64 KiB).
	MaxCaptureBytes int64
}
