package i18n

import (
	"context"
	"net/http"
	"strings"
)

type langKey struct{}

// WithLang attaches the resolved request language to the context.
func WithLang(ctx context.Context, lang string) context.Context {
	if lang == "" {
		return ctx
	}
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the resolved language, or "" if none was resolved.
func LangFromContext(ctx context.Context) string {
	if v := ctx.Value(langKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ResolveLang middleware determines the request language once per request:
// ?lang= query parameter, then the lang cookie, then the first tag of
// Accept-Language. Absent all three the context carries no language and the
// response path applies its own fallback.
func ResolveLang(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		if lang == "" {
			if c, err := r.Cookie("lang"); err == nil {
				lang = c.Value
			}
		}
		if lang == "" {
			lang = firstAcceptLanguage(r.Header.Get("Accept-Language"))
		}
		next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), strings.TrimSpace(lang))))
	})
}

// firstAcceptLanguage extracts the first language tag, dropping any quality
// weight: "es-MX;q=0.9, en" -> "es-MX".
func firstAcceptLanguage(header string) string {
	if header == "" {
		return ""
	}
	first := header
	if i := strings.Index(first, ","); i >= 0 {
		first = first[:i]
	}
	if i := strings.Index(first, ";"); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSpace(first)
	if first == "*" {
		return ""
	}
	return first
}
