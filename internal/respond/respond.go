// Package respond renders every terminal HTTP response: successes are
// wrapped in a SuccessEnvelope, failures are translated into an
// ErrorEnvelope. Both paths compute duration from the correlation
// middleware's start stamp, resolve the request language, and emit exactly
// one structured log entry per request.
package respond

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/keithlinneman/linnemanlabs-api/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-api/internal/i18n"
	"github.com/keithlinneman/linnemanlabs-api/internal/log"
	"github.com/keithlinneman/linnemanlabs-api/internal/mask"
)

// SlowRequestThreshold is the fixed duration above which a request gets a
// slow-request warning, on both the success and error paths.
const SlowRequestThreshold = 3000 * time.Millisecond

// Fallback languages when no locale was resolved for the request. The two
// paths historically used different fallbacks; both catalogs resolve to the
// same base so the asymmetry is harmless, but it is preserved deliberately.
const (
	successFallbackLang = "en"
	errorFallbackLang   = "en-US"
)

// EnvelopeObserver counts terminal envelopes and slow requests. Implemented
// by the metrics package; nil disables observation.
type EnvelopeObserver interface {
	ObserveEnvelope(status int, category string)
	IncSlowRequest()
}

// Options configures a Responder.
type Options struct {
	Log        log.Logger
	Translator i18n.Translator
	Metrics    EnvelopeObserver
}

// Responder renders envelopes. Safe for concurrent use; all per-request
// state comes from the request context.
type Responder struct {
	log     log.Logger
	tr      i18n.Translator
	metrics EnvelopeObserver
}

func New(opts Options) *Responder {
	L := opts.Log
	if L == nil {
		L = log.Nop()
	}
	return &Responder{log: L, tr: opts.Translator, metrics: opts.Metrics}
}

// OK renders result with status 200.
func (rp *Responder) OK(w http.ResponseWriter, r *http.Request, result any) {
	rp.Respond(w, r, http.StatusOK, result)
}

// Respond wraps a handler result in a SuccessEnvelope and writes it.
//
// When result is a map carrying a "message" entry, that entry becomes the
// envelope's meta message and the remaining entries become data. Any other
// result is passed through as data with a generic localized message. This
// path never fails: formatting problems degrade to the generic message.
func (rp *Responder) Respond(w http.ResponseWriter, r *http.Request, status int, result any) {
	ctx := r.Context()
	rc, _ := httpmw.RequestContextFromContext(ctx)
	duration := elapsedMillis(rc)
	addr := httpmw.ClientAddrFromContext(ctx)

	lang := i18n.LangFromContext(ctx)
	if lang == "" {
		lang = successFallbackLang
	}
	generic := rp.tr.T("success.ok", lang)

	data := result
	var rawMsg any
	if m, ok := result.(map[string]any); ok {
		if v, has := m["message"]; has {
			rawMsg = v
			rest := make(map[string]any, len(m)-1)
			for k, val := range m {
				if k != "message" {
					rest[k] = val
				}
			}
			data = rest
		}
	}
	message := normalizeMessage(rawMsg, generic)

	env := SuccessEnvelope{
		Success:    true,
		StatusCode: status,
		Meta: SuccessMeta{
			RequestID:     rc.RequestID,
			CorrelationID: rc.CorrelationID,
			Path:          r.URL.Path,
			Method:        r.Method,
			Lang:          lang,
			IPv4:          addr.IPv4,
			IPv6:          addr.IPv6,
			Duration:      duration,
			Message:       message,
			Timestamp:     time.Now().UTC(),
		},
		Data: data,
	}
	if err := writeJSON(w, status, env); err != nil {
		// unserializable payload: degrade rather than propagate
		env.Data = nil
		env.Meta.Message = generic
		_ = writeJSON(w, status, env)
	}

	fields := []any{
		"request_id", rc.RequestID,
		"correlation_id", rc.CorrelationID,
		"http.request.method", r.Method,
		"url.path", r.URL.Path,
		"http.response.status_code", status,
		"duration_ms", duration,
		"client.ipv4", addr.IPv4,
		"client.ipv6", addr.IPv6,
		"user_agent", r.UserAgent(),
	}
	if body := httpmw.CapturedBodyFromContext(ctx); body != nil {
		fields = append(fields, "body", mask.Mask(body))
	}
	rp.log.Info(ctx, "request completed", fields...)
	rp.slowCheck(ctx, rc, duration)
	rp.observe(status, "")
}

func (rp *Responder) observe(status int, category string) {
	if rp.metrics != nil {
		rp.metrics.ObserveEnvelope(status, category)
	}
}

// slowCheck emits the slow-request warning once per request when measured
// duration exceeds the threshold, independent of outcome.
func (rp *Responder) slowCheck(ctx context.Context, rc httpmw.RequestContext, duration int64) {
	if duration <= SlowRequestThreshold.Milliseconds() {
		return
	}
	if rp.metrics != nil {
		rp.metrics.IncSlowRequest()
	}
	rp.log.Warn(ctx, "slow request detected",
		"alert", "slow_request",
		"request_id", rc.RequestID,
		"correlation_id", rc.CorrelationID,
		"duration_ms", duration,
		"threshold_ms", SlowRequestThreshold.Milliseconds(),
	)
}

// elapsedMillis measures from the correlation stamp, or 0 when the request
// never passed through the correlation middleware.
func elapsedMillis(rc httpmw.RequestContext) int64 {
	if rc.StartTime.IsZero() {
		return 0
	}
	return time.Since(rc.StartTime).Milliseconds()
}

// normalizeMessage coerces an arbitrary message value to a string: strings
// pass through, sequences join with ", ", scalars stringify, anything else
// is JSON-encoded. nil and unencodable values fall back to generic.
func normalizeMessage(v any, generic string) string {
	switch t := v.(type) {
	case nil:
		return generic
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, stringifyElem(e))
		}
		return strings.Join(parts, ", ")
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return fmt.Sprint(t)
	case fmt.Stringer:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return generic
		}
		return string(b)
	}
}

func stringifyElem(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}
