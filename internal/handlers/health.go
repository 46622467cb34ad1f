package handlers

import (
	"net/http"

	"modgate/internal/health"
)

// HealthHandler serves GET /v1/health.
type HealthHandler struct {
	Service *health.Service
}

func NewHealthHandler(s *health.Service) *HealthHandler {
	return &HealthHandler{Service: s}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp, healthy := h.Service.Check(r.Context())

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
