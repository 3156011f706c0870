package handler

import (
	"context"
	"net/http"
)

// Pinger is implemented by backing clients that can verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /healthz: process liveness only.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readiness returns a handler for GET /readyz that pings each named
// dependency. Any failing dependency makes the whole check fail.
func Readiness(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string, len(deps))
		healthy := true
		for name, dep := range deps {
			if err := dep.Ping(r.Context()); err != nil {
				checks[name] = err.Error()
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		result := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			result = "degraded"
		}
		JSON(w, status, HealthResponse{Status: result, Checks: checks})
	}
}
