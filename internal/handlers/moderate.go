package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"modgate/internal/apierr"
	"modgate/internal/moderation"
	"modgate/pkg/logging/logging"
)

// ModerateHandler serves POST /v1/moderate.
type ModerateHandler struct {
	Orchestrator *moderation.Orchestrator
}

func NewModerateHandler(o *moderation.Orchestrator) *ModerateHandler {
	return &ModerateHandler{Orchestrator: o}
}

func (h *ModerateHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	var req moderation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid request body", zap.Error(err))
		apierr.Write(w, http.StatusBadRequest, apierr.TypeValidation, "Invalid JSON body")
		return
	}

	if details := req.Validate(); len(details) > 0 {
		logger.Warn("request validation failed", zap.Int("issues", len(details)))
		apierr.Write(w, http.StatusBadRequest, apierr.TypeValidation, "Invalid input format", details...)
		return
	}

	resp, err := h.Orchestrator.Moderate(ctx, &req)
	if err != nil {
		logger.Error("moderation failed", zap.Error(err))
		apierr.Write(w, http.StatusInternalServerError, apierr.TypeOf(err),
			"Failed to process input: "+err.Error())
		return
	}

	logger.Info("moderation completed",
		zap.Int("total_items", resp.TotalItems),
		zap.Duration("total_latency", time.Since(start)),
	)

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON is a small helper to send JSON responses consistently.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
