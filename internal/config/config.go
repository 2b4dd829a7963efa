// Package config загружает конфигурацию сервера: значения по умолчанию,
// опциональный YAML-файл и переменные окружения с префиксом SHIFTSYNC_
// (точки ключей заменяются подчеркиванием: SHIFTSYNC_SERVER_LISTEN_ADDR).
// Некорректные значения отклоняются на старте, не в рантайме.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iudanet/shiftsync/internal/resolver"
)

// Поддерживаемые драйверы durable-хранилища
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config — вся конфигурация сервера
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Resume    ResumeConfig    `mapstructure:"resume"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig — HTTP-слушатель
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LogConfig — уровень логирования
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SyncConfig — параметры реестра подписок и журнала изменений
type SyncConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	QueueSize         int           `mapstructure:"queue_size"`
	ChangeLogSize     int           `mapstructure:"change_log_size"`
}

// ResolverConfig — политика разрешения конфликтов.
// AutoResolve включает эвристический выбор стратегии поверх Strategy;
// конфликты с уверенностью ниже ConfidenceThreshold уходят пользователю.
type ResolverConfig struct {
	Strategy            string  `mapstructure:"strategy"`
	AutoResolve         bool    `mapstructure:"auto_resolve"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// BridgeConfig — мост персистентности
type BridgeConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Staleness time.Duration `mapstructure:"staleness"`
}

// StorageConfig — durable-хранилище
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// ResumeConfig — восстановление сессий. Пустой Secret означает случайный
// ключ на процесс: resume-токены не переживают рестарт сервера.
type ResumeConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig — ограничение частоты HTTP-запросов
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Load читает конфигурацию. Пустой path пропускает файл и оставляет
// значения по умолчанию плюс окружение; явно указанный файл обязан
// существовать и читаться.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("sync.heartbeat_interval", "30s")
	v.SetDefault("sync.queue_size", 32)
	v.SetDefault("sync.change_log_size", 512)
	v.SetDefault("resolver.strategy", string(resolver.StrategyMerge))
	v.SetDefault("resolver.auto_resolve", false)
	v.SetDefault("resolver.confidence_threshold", 0.75)
	v.SetDefault("bridge.interval", "30s")
	v.SetDefault("bridge.staleness", "2m")
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", "shiftsync.db")
	v.SetDefault("resume.secret", "")
	v.SetDefault("resume.ttl", "5m")
	v.SetDefault("ratelimit.rps", 20.0)
	v.SetDefault("ratelimit.burst", 40)

	if path != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SHIFTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if _, err := resolver.ParseStrategy(c.Resolver.Strategy); err != nil {
		return fmt.Errorf("resolver.strategy: %w", err)
	}
	if c.Resolver.ConfidenceThreshold < 0 || c.Resolver.ConfidenceThreshold > 1 {
		return fmt.Errorf("resolver.confidence_threshold must be within [0,1], got %v",
			c.Resolver.ConfidenceThreshold)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Sync.HeartbeatInterval <= 0 {
		return fmt.Errorf("sync.heartbeat_interval must be positive, got %v", c.Sync.HeartbeatInterval)
	}
	if c.Sync.QueueSize < 1 {
		return fmt.Errorf("sync.queue_size must be at least 1, got %d", c.Sync.QueueSize)
	}
	if c.Sync.ChangeLogSize < 1 {
		return fmt.Errorf("sync.change_log_size must be at least 1, got %d", c.Sync.ChangeLogSize)
	}
	if c.Bridge.Interval <= 0 {
		return fmt.Errorf("bridge.interval must be positive, got %v", c.Bridge.Interval)
	}
	if c.Bridge.Staleness < 0 {
		return fmt.Errorf("bridge.staleness must not be negative, got %v", c.Bridge.Staleness)
	}
	if c.Storage.Driver != DriverSQLite && c.Storage.Driver != DriverBolt {
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverBolt, c.Storage.Driver)
	}
	if c.Resume.TTL <= 0 {
		return fmt.Errorf("resume.ttl must be positive, got %v", c.Resume.TTL)
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("ratelimit.rps must be positive, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("ratelimit.burst must be at least 1, got %d", c.RateLimit.Burst)
	}
	return nil
}

// SlogLevel возвращает уровень логирования; имя уже проверено в Load
func (c LogConfig) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Level)
	return level
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", name)
}
