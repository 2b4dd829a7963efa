// Package handlers — HTTP-поверхность сервера помимо WebSocket:
// liveness, статус, read-only снимок ростера и проверка бизнес-правил.
// Обработчики только читают; все мутации идут через /ws.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/pkg/api"
)

// RosterStore — читающая часть стора, нужная HTTP-обработчикам
type RosterStore interface {
	List(pred func(*models.Employee) bool) []*models.Employee
	ListByPeriod(period string) []*models.Employee
	Periods() []string
	Count() int
	CurrentVersion() int64
}

func respondJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func respondError(logger *slog.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(logger, w, status, map[string]string{"error": message})
}

func toAPIEmployee(e *models.Employee) api.Employee {
	return api.Employee{
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		ID:             e.ID,
		Name:           e.Name,
		Role:           e.Role,
		EmploymentType: e.EmploymentType,
		Period:         e.Period,
		Notes:          e.Notes,
		WeeklyHours:    e.WeeklyHours,
		Version:        e.Version,
	}
}
