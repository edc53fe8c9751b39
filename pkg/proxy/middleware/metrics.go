package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder records one completed HTTP request.
// metrics.Collector implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// MetricsMiddleware records status and latency per route. Paths outside
// routes are recorded as "other" to keep label cardinality bounded.
//
//	handler = MetricsMiddleware(collector, "/latex-convert", "/health")(handler)
func MetricsMiddleware(recorder HTTPRecorder, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if _, ok := known[route]; !ok {
				route = "other"
			}
			recorder.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
