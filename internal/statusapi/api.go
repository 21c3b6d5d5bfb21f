// Package statusapi exposes the service's own API surface: a status
// endpoint reporting build metadata and an echo endpoint that reflects a
// JSON document back through the standard response envelope.
package statusapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-api/internal/apierr"
	"github.com/keithlinneman/linnemanlabs-api/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-api/internal/log"
	"github.com/keithlinneman/linnemanlabs-api/internal/respond"
	"github.com/keithlinneman/linnemanlabs-api/internal/version"
)

// API implements the status endpoints.
type API struct {
	responder *respond.Responder
	logger    log.Logger
	started   time.Time
}

// NewAPI creates the status API handler.
func NewAPI(rp *respond.Responder, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		responder: rp,
		logger:    logger,
		started:   time.Now(),
	}
}

// RegisterRoutes attaches the status endpoints to the router.
func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/v1/status", api.HandleStatus)
	r.Post("/v1/echo", api.HandleEcho)
}

// HandleStatus reports build and runtime metadata.
func (api *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	vi := version.Get()
	api.responder.OK(w, r, map[string]any{
		"message":        "service status",
		"app":            version.AppName,
		"version":        vi.Version,
		"commit":         vi.Commit,
		"build_date":     vi.BuildDate,
		"go_version":     vi.GoVersion,
		"uptime_seconds": int64(time.Since(api.started).Seconds()),
	})
}

// HandleEcho reflects the captured JSON body back to the caller. A "message"
// entry in the body surfaces as the envelope message; the rest comes back as
// data. Non-object or missing bodies are rejected.
func (api *API) HandleEcho(w http.ResponseWriter, r *http.Request) {
	doc := httpmw.CapturedBodyFromContext(r.Context())
	if doc == nil {
		api.responder.Error(w, r, apierr.BadRequest("body must be a JSON object"))
		return
	}
	api.responder.OK(w, r, doc)
}
