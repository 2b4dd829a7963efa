package handlers

import (
	"log/slog"
	"net/http"
)

// HealthHandler отвечает на liveness-запросы
type HealthHandler struct {
	logger  *slog.Logger
	version string
}

// NewHealthHandler создает handler health check.
// version приходит из build-time переменной main-пакета.
func NewHealthHandler(logger *slog.Logger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		version: version,
	}
}

// HealthResponse — ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// Health обрабатывает GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.logger, w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}
