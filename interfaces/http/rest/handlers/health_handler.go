package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness
type HealthHandler struct {
	service string
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service, started: time.Now()}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": h.service,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}
