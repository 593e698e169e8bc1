package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"loyaltytracker/internal/service"
)

// HealthChecker reports dependency health
type HealthChecker interface {
	CheckHealth(ctx context.Context) *service.HealthStatus
}

// HealthHandler handles health check requests
type HealthHandler struct {
	healthService HealthChecker
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(healthService HealthChecker) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

// HandleHealth handles GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthStatus := h.healthService.CheckHealth(r.Context())

	w.Header().Set("Content-Type", "application/json")

	switch healthStatus.Status {
	case service.StatusHealthy:
		w.WriteHeader(http.StatusOK)
	case service.StatusDegraded, service.StatusUnhealthy:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	// The status line is already out; nothing to do if encoding fails
	_ = json.NewEncoder(w).Encode(healthStatus)
}
