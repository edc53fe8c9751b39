// Package health serves liveness, readiness and version endpoints.
//
// Liveness never runs checks; a process that can answer is alive.
// Readiness runs every registered check with a per-check timeout and
// answers 503 if any fails. texrelay registers two:
//
//   - api_key: the expected key resolves (only fails in required mode)
//   - compiler: a TCP connection to the compiler host succeeds
//
// Usage:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("api_key", health.ReadinessCheck(keyChecker))
//	checker.Register(mux, health.Paths{Liveness: "/health", Readiness: "/ready", Version: "/version"},
//	    version, commit, buildTime)
package health
