package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/rules"
	"github.com/iudanet/shiftsync/internal/store"
)

func TestViolationsHandler_Violations(t *testing.T) {
	st := store.New(16)
	// W35: переработка у emp-1 и дубликат имени Alice (emp-1/emp-2)
	seedEmployee(t, st, "emp-1", "Alice", "cashier", "2026-W35", 50)
	seedEmployee(t, st, "emp-2", "Alice", "cook", "2026-W35", 40)
	// W36: одно имя с W35 — не дубликат, периоды разные
	seedEmployee(t, st, "emp-3", "Alice", "cook", "2026-W36", 40)

	handler := NewViolationsHandler(setupTestLogger(), st)

	t.Run("single period", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Violations(w, httptest.NewRequest(http.MethodGet, "/api/v1/violations?period=2026-W35", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp ViolationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.Equal(t, "2026-W35", resp.Period)
		assert.Equal(t, 2, resp.Checked)
		require.Len(t, resp.Violations, 3)
		assert.Equal(t, rules.RuleOvertime, resp.Violations[0].Rule)
		assert.Equal(t, rules.RuleDuplicateName, resp.Violations[1].Rule)
		assert.Equal(t, rules.RuleDuplicateName, resp.Violations[2].Rule)
	})

	t.Run("whole roster groups by period", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Violations(w, httptest.NewRequest(http.MethodGet, "/api/v1/violations", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp ViolationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.Equal(t, 3, resp.Checked)
		// Совпадение имен между W35 и W36 дубликатом не считается
		require.Len(t, resp.Violations, 3)
	})

	t.Run("clean period returns empty list", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Violations(w, httptest.NewRequest(http.MethodGet, "/api/v1/violations?period=2026-W36", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp ViolationsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Violations)
		assert.Empty(t, resp.Violations)
	})

	t.Run("malformed period is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Violations(w, httptest.NewRequest(http.MethodGet, "/api/v1/violations?period=W35", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
