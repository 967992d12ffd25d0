package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/docxpress/internal/apperr"
	"github.com/docxpress/internal/logger"
)

// Recover answers 500 when a handler panics instead of letting the
// connection drop. http.ErrAbortHandler is re-raised.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Errorf("[PANIC] %s %s (%s): %v\n%s", r.Method, r.URL.Path, RequestID(r.Context()), rec, debug.Stack())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"` + apperr.InternalDetail + `"}`))
		}()
		next.ServeHTTP(w, r)
	})
}
