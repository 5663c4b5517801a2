package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ServiceName is reported by the legacy health endpoint.
const ServiceName = "TPLN Gateway"

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db        HealthChecker
	cache     HealthChecker
	identity  HealthChecker
	startedAt time.Time
	now       func() time.Time
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for db, cache or identity if they are not configured.
func NewHealthHandler(db, cache, identity HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     cache,
		identity:  identity,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LegacyHealthResponse is the body of GET /health.
type LegacyHealthResponse struct {
	Status  string  `json:"status"`
	Service string  `json:"service"`
	Uptime  float64 `json:"uptime"`
}

// Health reports process uptime in seconds.
//
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LegacyHealthResponse{
		Status:  "OK",
		Service: ServiceName,
		Uptime:  h.now().Sub(h.startedAt).Seconds(),
	})
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running.
// No dependency checks - this is for Kubernetes liveness probes.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status: "ok",
	}
	writeJSON(w, http.StatusOK, response)
}

// Readyz is a readiness probe endpoint.
// It checks all dependencies and returns 200 only if all are healthy.
// For Kubernetes readiness probes - removes pod from LB if failing.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	healthy := true

	for _, dep := range []struct {
		name    string
		checker HealthChecker
	}{
		{"postgres", h.db},
		{"redis", h.cache},
		{"auth_provider", h.identity},
	} {
		if dep.checker == nil {
			checks[dep.name] = "not configured"
			continue
		}
		if err := dep.checker.Ping(ctx); err != nil {
			checks[dep.name] = "error: " + err.Error()
			healthy = false
		} else {
			checks[dep.name] = "ok"
		}
	}

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status: status,
		Checks: checks,
	}

	writeJSON(w, statusCode, response)
}
