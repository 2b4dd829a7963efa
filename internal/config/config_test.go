package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.ListenAddr)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 30*time.Second, c.Sync.HeartbeatInterval)
	assert.Equal(t, 32, c.Sync.QueueSize)
	assert.Equal(t, 512, c.Sync.ChangeLogSize)
	assert.Equal(t, "merge", c.Resolver.Strategy)
	assert.False(t, c.Resolver.AutoResolve)
	assert.InDelta(t, 0.75, c.Resolver.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 30*time.Second, c.Bridge.Interval)
	assert.Equal(t, 2*time.Minute, c.Bridge.Staleness)
	assert.Equal(t, DriverSQLite, c.Storage.Driver)
	assert.Equal(t, "shiftsync.db", c.Storage.Path)
	assert.Empty(t, c.Resume.Secret)
	assert.Equal(t, 5*time.Minute, c.Resume.TTL)
	assert.InDelta(t, 20.0, c.RateLimit.RPS, 1e-9)
	assert.Equal(t, 40, c.RateLimit.Burst)
}

func TestLoad_FromFile(t *testing.T) {
	content := `
server:
  listen_addr: ":9090"
sync:
  heartbeat_interval: 45s
resolver:
  strategy: last_writer_wins
storage:
  driver: bolt
  path: /tmp/roster.db
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Server.ListenAddr)
	assert.Equal(t, 45*time.Second, c.Sync.HeartbeatInterval)
	assert.Equal(t, "last_writer_wins", c.Resolver.Strategy)
	assert.Equal(t, DriverBolt, c.Storage.Driver)
	assert.Equal(t, "/tmp/roster.db", c.Storage.Path)

	// Незатронутые файлом значения остаются дефолтными
	assert.Equal(t, 32, c.Sync.QueueSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHIFTSYNC_SERVER_LISTEN_ADDR", ":7070")
	t.Setenv("SHIFTSYNC_RESOLVER_STRATEGY", "user_choice")
	t.Setenv("SHIFTSYNC_BRIDGE_INTERVAL", "1m")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", c.Server.ListenAddr)
	assert.Equal(t, "user_choice", c.Resolver.Strategy)
	assert.Equal(t, time.Minute, c.Bridge.Interval)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"unknown strategy", "SHIFTSYNC_RESOLVER_STRATEGY", "coin_flip"},
		{"threshold above one", "SHIFTSYNC_RESOLVER_CONFIDENCE_THRESHOLD", "1.5"},
		{"unknown log level", "SHIFTSYNC_LOG_LEVEL", "verbose"},
		{"zero heartbeat", "SHIFTSYNC_SYNC_HEARTBEAT_INTERVAL", "0s"},
		{"zero queue", "SHIFTSYNC_SYNC_QUEUE_SIZE", "0"},
		{"unknown driver", "SHIFTSYNC_STORAGE_DRIVER", "postgres"},
		{"zero resume ttl", "SHIFTSYNC_RESUME_TTL", "0s"},
		{"zero rps", "SHIFTSYNC_RATELIMIT_RPS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LogConfig{Level: tt.name}.SlogLevel())
	}
}
