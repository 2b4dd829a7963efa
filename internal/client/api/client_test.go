package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shiftsync/internal/coordinator"
	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/registry"
	"github.com/iudanet/shiftsync/internal/resolver"
	"github.com/iudanet/shiftsync/internal/resume"
	"github.com/iudanet/shiftsync/internal/store"
	"github.com/iudanet/shiftsync/pkg/api"
)

func strPtr(s string) *string { return &s }

// newTestBackend поднимает настоящий серверный стек: клиент тестируется
// против живого протокола, а не записанных кадров.
func newTestBackend(t *testing.T, strategy resolver.Strategy) (*store.Store, *httptest.Server) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(64)

	resumeSvc, err := resume.NewService("test-secret", time.Minute)
	require.NoError(t, err)

	coord := coordinator.New(
		st,
		resolver.New(strategy),
		registry.New(32, time.Minute, logger, nil),
		resumeSvc,
		logger,
		nil,
	)

	srv := httptest.NewServer(http.HandlerFunc(coord.HandleWS))
	t.Cleanup(srv.Close)

	return st, srv
}

func dialTest(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()

	c, err := Dial(context.Background(), srv.URL, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func wireEmployee(id string) api.Employee {
	return api.Employee{
		ID:             id,
		Name:           "Alice",
		Role:           "cashier",
		EmploymentType: "full_time",
		Period:         "2026-W35",
		WeeklyHours:    40,
	}
}

func TestBuildWSURL(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		token     string
		want      string
		wantErr   bool
	}{
		{name: "http", serverURL: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{name: "https", serverURL: "https://roster.example.com", want: "wss://roster.example.com/ws"},
		{name: "trailing slash", serverURL: "http://localhost:8080/", want: "ws://localhost:8080/ws"},
		{name: "ws passthrough", serverURL: "ws://localhost:8080", want: "ws://localhost:8080/ws"},
		{
			name:      "resume token",
			serverURL: "http://localhost:8080",
			token:     "tok-1",
			want:      "ws://localhost:8080/ws?resume=tok-1",
		},
		{name: "unsupported scheme", serverURL: "ftp://localhost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildWSURL(tt.serverURL, tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDial_EstablishesSession(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)

	c := dialTest(t, srv)

	session := c.Session()
	assert.NotEmpty(t, session.ClientID)
	assert.NotEmpty(t, session.ResumeToken)
	assert.Equal(t, int64(60), session.HeartbeatInterval)
	assert.False(t, session.Resumed)
}

func TestCreateEmployee(t *testing.T) {
	st, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	event, err := c.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)

	assert.Equal(t, "emp-1", event.ID)
	assert.Equal(t, c.Session().ClientID, event.ClientID)
	require.NotNil(t, event.Employee)
	assert.Equal(t, int64(1), event.Employee.Version)

	stored, err := st.Get("emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Name)
}

func TestCreateEmployee_DuplicateID(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	_, err := c.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)

	_, err = c.CreateEmployee(wireEmployee("emp-1"))

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, api.CodeDuplicateID, serverErr.Code)
}

func TestUpdateEmployee(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	_, err := c.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)

	event, err := c.UpdateEmployee("emp-1", api.EmployeePatch{Role: strPtr("shift_lead")}, 1)
	require.NoError(t, err)

	require.NotNil(t, event.Employee)
	assert.Equal(t, "shift_lead", event.Employee.Role)
	assert.Equal(t, int64(2), event.Employee.Version)
}

func TestUpdateEmployee_NotFound(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	_, err := c.UpdateEmployee("ghost", api.EmployeePatch{Role: strPtr("cook")}, 0)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, api.CodeNotFound, serverErr.Code)
}

func TestUpdateEmployee_UserChoiceConflict(t *testing.T) {
	st, srv := newTestBackend(t, resolver.StrategyUserChoice)
	c := dialTest(t, srv)

	_, err := c.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)

	// Конкурентная правка через стор: версия уходит вперед
	_, err = st.Update("emp-1", &models.EmployeePatch{Role: strPtr("shift_lead")}, 1, "other-client")
	require.NoError(t, err)

	_, err = c.UpdateEmployee("emp-1", api.EmployeePatch{Role: strPtr("supervisor")}, 1)

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, api.CodeUserChoiceRequired, serverErr.Code)

	require.NotNil(t, serverErr.Conflict)
	require.NotNil(t, serverErr.Conflict.Local)
	require.NotNil(t, serverErr.Conflict.Remote)
	assert.Equal(t, "supervisor", serverErr.Conflict.Local.Role)
	assert.Equal(t, "shift_lead", serverErr.Conflict.Remote.Role)
	assert.Nil(t, serverErr.Conflict.Resolved)
}

func TestDeleteEmployee(t *testing.T) {
	st, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	_, err := c.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)

	event, err := c.DeleteEmployee("emp-1")
	require.NoError(t, err)

	assert.Equal(t, "emp-1", event.ID)
	assert.Equal(t, int64(1), event.Version)
	assert.Nil(t, event.Employee)

	_, err = st.Get("emp-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSync_Bootstrap(t *testing.T) {
	st, srv := newTestBackend(t, resolver.StrategyMerge)

	for _, id := range []string{"emp-1", "emp-2"} {
		_, err := st.Create(&models.Employee{
			ID:             id,
			Name:           "Alice",
			Role:           "cashier",
			EmploymentType: models.EmploymentFullTime,
			Period:         "2026-W35",
			WeeklyHours:    40,
		}, "seed")
		require.NoError(t, err)
	}

	c := dialTest(t, srv)

	resp, err := c.Sync(0)
	require.NoError(t, err)

	assert.True(t, resp.Bootstrap)
	assert.Equal(t, int64(2), resp.CurrentVersion)
	require.Len(t, resp.Employees, 2)
	assert.Equal(t, "emp-1", resp.Employees[0].ID)
	assert.Equal(t, "emp-2", resp.Employees[1].ID)
}

func TestSync_Delta(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	_, err := c.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)
	_, err = c.CreateEmployee(wireEmployee("emp-2"))
	require.NoError(t, err)

	resp, err := c.Sync(1)
	require.NoError(t, err)

	assert.False(t, resp.Bootstrap)
	assert.Equal(t, int64(2), resp.CurrentVersion)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, api.OpCreate, resp.Changes[0].Op)
	assert.Equal(t, "emp-2", resp.Changes[0].EntityID)
}

func TestPing(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	assert.NoError(t, c.Ping())
}

func TestSubscribe_UnknownTopic(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)
	c := dialTest(t, srv)

	err := c.Subscribe("employees/promoted")

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, api.CodeUnknownTopic, serverErr.Code)
}

func TestListen_ReceivesBroadcasts(t *testing.T) {
	_, srv := newTestBackend(t, resolver.StrategyMerge)

	watcher := dialTest(t, srv)
	require.NoError(t, watcher.Subscribe(api.TopicEmployeesCreated))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan api.Envelope, 8)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Listen(ctx, func(env *api.Envelope) {
			events <- *env
		})
	}()

	editor := dialTest(t, srv)
	_, err := editor.CreateEmployee(wireEmployee("emp-1"))
	require.NoError(t, err)

	select {
	case env := <-events:
		assert.Equal(t, api.MsgEntityCreated, env.Type)

		var event api.EntityEvent
		require.NoError(t, env.Decode(&event))
		assert.Equal(t, "emp-1", event.ID)
		assert.Equal(t, editor.Session().ClientID, event.ClientID)
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not arrive")
	}

	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not stop after context cancellation")
	}
}
