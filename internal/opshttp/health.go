package opshttp

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-api/internal/health"
)

// Health endpoints on the ops listener delegate to the shared handlers so
// the public and ops servers cannot disagree about probe semantics.

func healthzHandler(p health.Probe) http.HandlerFunc { return health.HealthzHandler(p) }
func readyzHandler(p health.Probe) http.HandlerFunc  { return health.ReadyzHandler(p) }
