package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/bridge"
	"github.com/iudanet/shiftsync/internal/coordinator"
	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/registry"
	"github.com/iudanet/shiftsync/internal/resolver"
	"github.com/iudanet/shiftsync/internal/resume"
	"github.com/iudanet/shiftsync/internal/server/handlers"
	"github.com/iudanet/shiftsync/internal/store"
	"github.com/iudanet/shiftsync/pkg/api"
)

type staticBridge struct {
	status bridge.Status
}

func (b staticBridge) Status() bridge.Status { return b.status }

// newTestServer собирает сервер с реальными компонентами и отдает
// httptest-обертку над его handler-цепочкой.
func newTestServer(t *testing.T, rps float64, burst int) (*store.Store, *httptest.Server) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(64)

	resumeSvc, err := resume.NewService("test-secret", time.Minute)
	require.NoError(t, err)

	reg := registry.New(32, time.Minute, logger, nil)
	coord := coordinator.New(st, resolver.New(resolver.StrategyMerge), reg, resumeSvc, logger, nil)

	s := New(Options{
		ListenAddr:  "127.0.0.1:0",
		Version:     "test",
		Store:       st,
		Registry:    reg,
		Coordinator: coord,
		Bridge:      staticBridge{status: bridge.Status{PendingConflicts: 2}},
		Logger:      logger,
		RateRPS:     rps,
		RateBurst:   burst,
	})

	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)
	return st, srv
}

func TestServer_Routes(t *testing.T) {
	st, srv := newTestServer(t, 1000, 1000)

	_, err := st.Create(&models.Employee{
		ID:             "emp-1",
		Name:           "Alice",
		Role:           "cashier",
		EmploymentType: models.EmploymentFullTime,
		Period:         "2026-W35",
		WeeklyHours:    40,
	}, "seed")
	require.NoError(t, err)

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body handlers.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "test", body.Version)
	})

	t.Run("status", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/status")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body handlers.StatusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.Employees)
		assert.Equal(t, int64(1), body.StoreVersion)
		assert.Equal(t, 2, body.Bridge.PendingConflicts)
	})

	t.Run("roster", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/roster?period=2026-W35")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body handlers.RosterResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Employees, 1)
		assert.Equal(t, "emp-1", body.Employees[0].ID)
	})

	t.Run("violations", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/violations")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body handlers.ViolationsResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body.Checked)
		assert.Empty(t, body.Violations)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown path", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/unknown")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/roster", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

// Апгрейд должен проходить сквозь всю middleware-цепочку: logging
// оборачивает ResponseWriter, и без проброса Hijack gorilla не смогла бы
// перехватить соединение.
func TestServer_WebSocketThroughMiddleware(t *testing.T) {
	_, srv := newTestServer(t, 1000, 1000)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env api.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, api.MsgSessionCreated, env.Type)
}

func TestServer_RateLimitApplies(t *testing.T) {
	_, srv := newTestServer(t, 0, 1)

	resp, err := http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(16)

	resumeSvc, err := resume.NewService("test-secret", time.Minute)
	require.NoError(t, err)

	reg := registry.New(32, time.Minute, logger, nil)
	coord := coordinator.New(st, resolver.New(resolver.StrategyMerge), reg, resumeSvc, logger, nil)

	s := New(Options{
		ListenAddr:  "127.0.0.1:0",
		Store:       st,
		Registry:    reg,
		Coordinator: coord,
		Bridge:      staticBridge{},
		Logger:      logger,
		RateRPS:     1000,
		RateBurst:   1000,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx)
	}()

	// Даем серверу время занять порт перед отменой
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}
