package respond

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/keithlinneman/linnemanlabs-api/internal/apierr"
	"github.com/keithlinneman/linnemanlabs-api/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-api/internal/i18n"
)

// Error translates any failure into an ErrorEnvelope and writes it. This is
// the single catch-all: no failure reaches the client unformatted. It also
// satisfies httpmw.PanicRenderer, so recovered panics flow through the same
// path and log exactly once.
//
// A *apierr.Error supplies its own status and message(s); any other error
// with non-empty text is surfaced as a 500 with that text; everything else
// gets the generic localized message.
func (rp *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	rc, _ := httpmw.RequestContextFromContext(ctx)
	duration := elapsedMillis(rc)
	addr := httpmw.ClientAddrFromContext(ctx)

	lang := i18n.LangFromContext(ctx)
	if lang == "" {
		lang = errorFallbackLang
	}
	generic := rp.tr.T("errors.internal", lang)

	status := http.StatusInternalServerError
	var msgValue any = generic
	var msgs []string

	var ae *apierr.Error
	if errors.As(err, &ae) {
		if ae.Status >= 100 && ae.Status < 600 {
			status = ae.Status
		}
		if len(ae.Messages) > 0 {
			msgs = ae.Messages
			msgValue = ae.Messages
		} else {
			msgValue = ae.Text()
		}
	} else if err != nil {
		if text := err.Error(); text != "" {
			msgValue = text
		}
	}

	// array messages join for categorization and logging, the envelope keeps
	// the original array
	joined := strings.Join(msgs, ", ")
	if joined == "" {
		joined, _ = msgValue.(string)
	}
	category := apierr.Categorize(status, joined)

	var fieldErrs map[string][]string
	if category == apierr.CategoryValidation && len(msgs) > 0 {
		fieldErrs = fieldErrors(msgs)
	}

	env := ErrorEnvelope{
		Success:    false,
		StatusCode: status,
		Meta: ErrorMeta{
			RequestID:     rc.RequestID,
			CorrelationID: rc.CorrelationID,
			Path:          r.URL.Path,
			Method:        r.Method,
			Lang:          lang,
			ErrorCategory: category,
			Message:       msgValue,
			Timestamp:     time.Now().UTC(),
			IPv4:          addr.IPv4,
			IPv6:          addr.IPv6,
			Errors:        fieldErrs,
		},
	}
	if werr := writeJSON(w, status, env); werr != nil {
		env.Meta.Message = generic
		env.Meta.Errors = nil
		_ = writeJSON(w, status, env)
	}

	fields := []any{
		"request_id", rc.RequestID,
		"correlation_id", rc.CorrelationID,
		"http.request.method", r.Method,
		"url.path", r.URL.Path,
		"http.response.status_code", status,
		"error_category", string(category),
		"duration_ms", duration,
		"client.ipv4", addr.IPv4,
		"client.ipv6", addr.IPv6,
		"user_agent", r.UserAgent(),
	}

	lvl, alert := classify(status, category)
	if alert != "" {
		fields = append(fields, "alert", alert)
	}
	switch lvl {
	case levelError:
		rp.log.Error(ctx, err, "request failed", fields...)
	case levelWarn:
		rp.log.Warn(ctx, "request failed", fields...)
	default:
		rp.log.Info(ctx, "request failed", fields...)
	}

	rp.slowCheck(ctx, rc, duration)
	rp.observe(status, string(category))
}

// NotFound is the router's fallback for unmatched paths.
func (rp *Responder) NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rp.Error(w, r, apierr.NotFound(""))
	}
}

// MethodNotAllowed is the router's fallback for matched paths with an
// unsupported method.
func (rp *Responder) MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rp.Error(w, r, apierr.New(http.StatusMethodNotAllowed, ""))
	}
}

// fieldErrors groups validation messages by their first whitespace token.
// This is a best-effort guess at field attribution, not a parse; messages
// with no leading field name collect under "general". Order within each
// field is preserved.
func fieldErrors(msgs []string) map[string][]string {
	out := make(map[string][]string, len(msgs))
	for _, m := range msgs {
		field := "general"
		if f := strings.Fields(m); len(f) > 0 {
			field = f[0]
		}
		out[field] = append(out[field], m)
	}
	return out
}
