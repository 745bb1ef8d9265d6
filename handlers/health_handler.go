package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/multichat/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	history   Pinger
	providers int
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. providerCount is the number
// of registered adapters.
func NewHealthHandler(history Pinger, providerCount int, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		history:   history,
		providers: providerCount,
		logger:    logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
// Readiness check - the history store must answer a ping
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkHistory(ctx); err != nil {
		h.logger.Warn("history store health check failed", zap.Error(err))
		checks["history"] = "unhealthy"
		allHealthy = false
	} else {
		checks["history"] = "healthy"
	}

	if h.providers == 0 {
		checks["providers"] = "none_registered"
	} else {
		checks["providers"] = "registered"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

func (h *HealthHandler) checkHistory(ctx context.Context) error {
	if h.history == nil {
		return nil
	}
	return h.history.Ping(ctx)
}
