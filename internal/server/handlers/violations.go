package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/shiftsync/internal/rules"
	"github.com/iudanet/shiftsync/internal/validation"
)

// ViolationsHandler прогоняет снимок ростера через бизнес-правила
type ViolationsHandler struct {
	logger *slog.Logger
	store  RosterStore
}

// NewViolationsHandler создает handler проверки правил
func NewViolationsHandler(logger *slog.Logger, store RosterStore) *ViolationsHandler {
	return &ViolationsHandler{
		logger: logger,
		store:  store,
	}
}

// ViolationsResponse — ответ GET /api/v1/violations
type ViolationsResponse struct {
	Period     string            `json:"period,omitempty"`
	Checked    int               `json:"checked"`    // записей проверено
	Violations []rules.Violation `json:"violations"` // пустой список — ростер чист
}

// Violations обрабатывает GET /api/v1/violations?period=2026-W35.
// Без параметра period проверяется весь ростер; дубликаты имен при этом
// ищутся в пределах каждого периода, как того требует правило.
func (h *ViolationsHandler) Violations(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if err := validation.ValidatePeriod(period); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, err.Error())
		return
	}

	var out []rules.Violation
	var checked int

	if period != "" {
		snapshot := h.store.ListByPeriod(period)
		checked = len(snapshot)
		out = rules.Check(snapshot)
	} else {
		// Записи без привязки к периоду проверяются своей группой
		for _, p := range append(h.store.Periods(), "") {
			snapshot := h.store.ListByPeriod(p)
			checked += len(snapshot)
			out = append(out, rules.Check(snapshot)...)
		}
	}

	if out == nil {
		out = []rules.Violation{}
	}

	respondJSON(h.logger, w, http.StatusOK, ViolationsResponse{
		Period:     period,
		Checked:    checked,
		Violations: out,
	})
}
