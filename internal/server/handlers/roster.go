package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/validation"
	"github.com/iudanet/shiftsync/pkg/api"
)

// RosterHandler отдает read-only снимок ростера
type RosterHandler struct {
	logger *slog.Logger
	store  RosterStore
}

// NewRosterHandler создает handler снимка ростера
func NewRosterHandler(logger *slog.Logger, store RosterStore) *RosterHandler {
	return &RosterHandler{
		logger: logger,
		store:  store,
	}
}

// RosterResponse — ответ GET /api/v1/roster
type RosterResponse struct {
	Period    string         `json:"period,omitempty"`
	Version   int64          `json:"version"`
	Employees []api.Employee `json:"employees"`
}

// Roster обрабатывает GET /api/v1/roster?period=2026-W35.
// Без параметра period возвращается весь ростер.
func (h *RosterHandler) Roster(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if err := validation.ValidatePeriod(period); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot := h.snapshot(period)

	out := make([]api.Employee, 0, len(snapshot))
	for _, e := range snapshot {
		out = append(out, toAPIEmployee(e))
	}

	respondJSON(h.logger, w, http.StatusOK, RosterResponse{
		Period:    period,
		Version:   h.store.CurrentVersion(),
		Employees: out,
	})
}

func (h *RosterHandler) snapshot(period string) []*models.Employee {
	if period == "" {
		return h.store.List(nil)
	}
	return h.store.ListByPeriod(period)
}
