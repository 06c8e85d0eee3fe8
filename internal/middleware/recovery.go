package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"stockvault-api/pkg/apierror"
)

// Recovery converts a handler panic into a 500 instead of killing the
// connection. The stack goes to the log with the request id; the wire gets
// the generic internal error.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[Recovery] panic id=%s: %v\n%s",
					GetRequestID(r.Context()), rec, debug.Stack())
				writeError(w, apierror.InternalError(""))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
