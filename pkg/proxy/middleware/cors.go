package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"texrelay-hq/texrelay/pkg/config"
)

// CORSConfig contains configuration for CORS middleware.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	Enabled bool

	// AllowedOrigins is a list of allowed origins for CORS.
	// Use ["*"] to allow all origins.
	AllowedOrigins []string

	// AllowedMethods is a list of allowed HTTP methods.
	AllowedMethods []string

	// AllowedHeaders is a list of allowed HTTP headers.
	AllowedHeaders []string

	// ExposedHeaders is a list of headers exposed to clients.
	ExposedHeaders []string

	// MaxAge is the maximum age (in seconds) for preflight cache.
	MaxAge int
}

// NewCORSConfig builds the middleware configuration from the proxy config.
// extraHeaders are appended to the allowed headers when missing, so a custom
// API key header is always accepted by browsers.
func NewCORSConfig(cfg config.CORSConfig, extraHeaders ...string) *CORSConfig {
	headers := slices.Clone(cfg.AllowedHeaders)
	for _, h := range extraHeaders {
		if h != "" && !slices.ContainsFunc(headers, func(s string) bool { return strings.EqualFold(s, h) }) {
			headers = append(headers, h)
		}
	}

	return &CORSConfig{
		Enabled:        cfg.Enabled,
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: headers,
		ExposedHeaders: cfg.ExposedHeaders,
		MaxAge:         cfg.MaxAge,
	}
}

// CORSMiddleware adds Cross-Origin Resource Sharing headers to every response
// and answers preflight OPTIONS requests itself with 200 and an empty body,
// before authentication or body parsing run.
//
// With "*" among the allowed origins the wildcard is always sent, never the
// echoed origin. Otherwise a listed origin is echoed and Vary: Origin is set.
//
//	handler = CORSMiddleware(NewCORSConfig(cfg.Proxy.CORS, "x-api-key"))(handler)
func CORSMiddleware(config *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			origin := r.Header.Get("Origin")

			switch {
			case slices.Contains(config.AllowedOrigins, "*"):
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(config.AllowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}

			if len(config.ExposedHeaders) > 0 {
				h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
			}

			if r.Method == http.MethodOptions {
				if len(config.AllowedMethods) > 0 {
					h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				}
				if len(config.AllowedHeaders) > 0 {
					h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				}
				if config.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
				}

				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
