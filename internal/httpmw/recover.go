package httpmw

import (
	"fmt"
	"net/http"

	"github.com/keithlinneman/linnemanlabs-api/internal/log"
	"github.com/keithlinneman/linnemanlabs-api/internal/xerrors"
)

// PanicRenderer formats a recovered panic as the standard error response.
// It is responsible for logging; Recover itself does not log when one is set
// so each failure produces exactly one log entry.
type PanicRenderer func(w http.ResponseWriter, r *http.Request, err error)

// Recover converts handler panics into error responses instead of killing
// the connection. onPanic (usually a metrics counter) fires first, then
// render formats the response. With a nil render the panic is logged here
// and a bare 500 is written.
func Recover(L log.Logger, onPanic func(), render PanicRenderer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				var err error
				switch t := rec.(type) {
				case error:
					err = xerrors.EnsureTrace(t)
				default:
					err = xerrors.Newf("panic: %v", t)
				}

				if onPanic != nil {
					onPanic()
				}

				if render != nil {
					render(w, r, err)
					return
				}

				if L != nil {
					L.Error(r.Context(), err, "httpserver panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
					)
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"success":false,"statusCode":500}`)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
