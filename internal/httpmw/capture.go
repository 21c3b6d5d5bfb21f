package httpmw

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

type capturedBodyKey struct{}

// readCloser pairs a spliced reader with the original body's Close.
type readCloser struct {
	io.Reader
	io.Closer
}

// WithCapturedBody attaches a decoded request body to the context.
func WithCapturedBody(ctx context.Context, doc map[string]any) context.Context {
	return context.WithValue(ctx, capturedBodyKey{}, doc)
}

// CapturedBodyFromContext returns the decoded JSON request body stored by
// CaptureBody, or nil when none was captured.
func CapturedBodyFromContext(ctx context.Context) map[string]any {
	m, _ := ctx.Value(capturedBodyKey{}).(map[string]any)
	return m
}

// mutating reports whether the method is one whose body gets logged.
func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// CaptureBody buffers small JSON bodies of mutating requests and stores the
// decoded object in the context so the response path can log a masked copy.
// The body is replaced with a fresh reader, so handlers read it normally.
// Non-JSON bodies, non-object documents, oversized bodies, and read errors
// are all skipped silently; capture must never break request handling.
func CaptureBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
				next.ServeHTTP(w, r)
				return
			}

			orig := r.Body
			buf, err := io.ReadAll(io.LimitReader(orig, maxBytes+1))
			// splice the buffered prefix back so handlers read the full body
			r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), orig), orig}

			if err != nil || int64(len(buf)) > maxBytes {
				next.ServeHTTP(w, r)
				return
			}

			var doc map[string]any
			if json.Unmarshal(buf, &doc) == nil && doc != nil {
				r = r.WithContext(WithCapturedBody(r.Context(), doc))
			}
			next.ServeHTTP(w, r)
		})
	}
}
