// Package config loads the service configuration from audit.yaml with
// environment overrides, and supports hot-reload of the tunable sections.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/db"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/tracing"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
	// Shutdown grace period in seconds.
	ShutdownGraceSecs int `mapstructure:"shutdown_grace_secs"`
}

// RedisConfig holds the optional analysis cache settings.
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	// Cache entry TTL in seconds.
	TTLSecs int `mapstructure:"ttl_secs"`
}

// AuditConfig holds session-level limits.
type AuditConfig struct {
	MaxQuestions int `mapstructure:"max_questions"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database db.Config      `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Tracing  tracing.Config `mapstructure:"tracing"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.metrics_port", 2112)
	v.SetDefault("server.shutdown_grace_secs", 15)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "audit")
	v.SetDefault("database.database", "aeo_audit")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.idle_connections", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.ttl_secs", 600)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "aeo-audit-engine")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")

	v.SetDefault("audit.max_questions", 40)
}

// Load reads config from CONFIG_PATH, or /app/config/audit.yaml, or
// ./config/audit.yaml. A missing file is not an error: defaults and
// environment overrides still apply.
func Load(logger *zap.Logger) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		for _, candidate := range []string{"/app/config/audit.yaml", "./config/audit.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		logger.Info("Loaded configuration", zap.String("path", path))
	} else {
		logger.Info("No config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if path != "" {
		watchReloads(v, logger, &cfg)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Audit.MaxQuestions <= 0 {
		return fmt.Errorf("audit.max_questions must be positive, got %d", c.Audit.MaxQuestions)
	}
	return nil
}

var reloadMu sync.Mutex

// watchReloads re-reads the safe-to-change sections when the file changes.
// Listener addresses and database settings require a restart and are left
// untouched on reload.
func watchReloads(v *viper.Viper, logger *zap.Logger, cfg *Config) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			logger.Warn("Ignoring config reload, unmarshal failed", zap.Error(err))
			return
		}
		if err := next.validate(); err != nil {
			logger.Warn("Ignoring config reload, validation failed", zap.Error(err))
			return
		}
		reloadMu.Lock()
		cfg.Audit = next.Audit
		cfg.Redis.TTLSecs = next.Redis.TTLSecs
		reloadMu.Unlock()
		logger.Info("Configuration reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()
}

// MaxQuestions returns the current question cap, safe to read across reloads.
func (c *Config) MaxQuestions() int {
	reloadMu.Lock()
	defer reloadMu.Unlock()
	return c.Audit.MaxQuestions
}
