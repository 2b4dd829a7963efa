package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/shiftsync/internal/bridge"
)

// ClientCounter отдает текущее число подключенных клиентов
type ClientCounter interface {
	ClientCount() int
}

// BridgeReporter отдает срез состояния моста персистентности
type BridgeReporter interface {
	Status() bridge.Status
}

// StatusHandler собирает операционный срез сервера
type StatusHandler struct {
	logger  *slog.Logger
	store   RosterStore
	clients ClientCounter
	bridge  BridgeReporter
}

// NewStatusHandler создает handler статуса
func NewStatusHandler(logger *slog.Logger, store RosterStore, clients ClientCounter, reporter BridgeReporter) *StatusHandler {
	return &StatusHandler{
		logger:  logger,
		store:   store,
		clients: clients,
		bridge:  reporter,
	}
}

// StatusResponse — ответ GET /api/v1/status
type StatusResponse struct {
	Clients      int           `json:"clients"`
	Employees    int           `json:"employees"`
	StoreVersion int64         `json:"store_version"`
	Bridge       bridge.Status `json:"bridge"`
}

// Status обрабатывает GET /api/v1/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.logger, w, http.StatusOK, StatusResponse{
		Clients:      h.clients.ClientCount(),
		Employees:    h.store.Count(),
		StoreVersion: h.store.CurrentVersion(),
		Bridge:       h.bridge.Status(),
	})
}
