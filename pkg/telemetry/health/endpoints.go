package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns the liveness probe handler.
//
//	{"status": "ok", "uptime": "3h2m1s", "timestamp": "2026-10-18T10:30:00Z"}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeStatus(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns the readiness probe handler. It answers 200 when
// every check passes and 503 otherwise.
//
//	{
//	    "status": "not_ready",
//	    "checks": {
//	        "api_key": {"status": "unhealthy", "message": "expected API key \"latex-api-key\" unavailable: secret not found"},
//	        "compiler": {"status": "ok", "duration_ms": 4.1}
//	    },
//	    "timestamp": "2026-10-18T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}

		status := c.CheckReadiness(r.Context())

		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, r, code, status)
	}
}

// VersionHandler returns the build information handler.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowRead(w, r) {
			return
		}
		writeStatus(w, r, http.StatusOK, info)
	}
}

// Paths are the routes the health endpoints are mounted on.
type Paths struct {
	Liveness  string
	Readiness string
	Version   string
}

// Register mounts liveness, readiness and version handlers on mux.
func (c *Checker) Register(mux *http.ServeMux, paths Paths, version, commit, buildTime string) {
	mux.HandleFunc(paths.Liveness, c.LivenessHandler())
	mux.HandleFunc(paths.Readiness, c.ReadinessHandler())
	mux.HandleFunc(paths.Version, VersionHandler(version, commit, buildTime))
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte(`{"error":"Method not allowed"}` + "\n"))
	return false
}

func writeStatus(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}
