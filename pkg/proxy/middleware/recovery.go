package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"texrelay-hq/texrelay/pkg/proxy/types"
)

// RecoveryMiddleware turns a handler panic into the standard internal error
// body, {"error":"Internal server error","details":<panic value>}, and logs
// the stack. http.ErrAbortHandler is re-raised so net/http can abort the
// connection as intended.
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", rec,
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			errResp := types.NewErrorResult(types.MessageInternalError, fmt.Sprint(rec))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errResp)
		}()

		next.ServeHTTP(w, r)
	})
}
