package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/bridge"
	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/store"
)

type fakeBridge struct {
	status bridge.Status
}

func (f *fakeBridge) Status() bridge.Status { return f.status }

type fakeCounter int

func (f fakeCounter) ClientCount() int { return int(f) }

func seedEmployee(t *testing.T, st *store.Store, id, name, role, period string, hours int) {
	t.Helper()
	_, err := st.Create(&models.Employee{
		ID:             id,
		Name:           name,
		Role:           role,
		EmploymentType: models.EmploymentFullTime,
		Period:         period,
		WeeklyHours:    hours,
	}, "seed")
	require.NoError(t, err)
}

func TestStatusHandler_Status(t *testing.T) {
	st := store.New(16)
	seedEmployee(t, st, "emp-1", "Alice", "cashier", "2026-W35", 40)
	seedEmployee(t, st, "emp-2", "Boris", "cook", "2026-W35", 40)

	reporter := &fakeBridge{status: bridge.Status{
		LastRun:          time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		PendingConflicts: 1,
	}}

	handler := NewStatusHandler(setupTestLogger(), st, fakeCounter(3), reporter)

	w := httptest.NewRecorder()
	handler.Status(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 3, resp.Clients)
	assert.Equal(t, 2, resp.Employees)
	assert.Equal(t, int64(2), resp.StoreVersion)
	assert.Equal(t, 1, resp.Bridge.PendingConflicts)
	assert.Equal(t, reporter.status.LastRun, resp.Bridge.LastRun)
}
