package config

import (
	"time"

	"github.com/lucasvrm/previso/internal/infra/apiclient/retry"
	redisclient "github.com/lucasvrm/previso/internal/infra/redis"
	"github.com/lucasvrm/previso/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API      APIConfig          `yaml:"api"`
	Retry    retry.Config       `yaml:"retry"`
	Session  SessionConfig      `yaml:"session"`
	Recency  RecencyConfig      `yaml:"recency"`
	Server   ServerConfig       `yaml:"server"`
	Watch    WatchConfig        `yaml:"watch"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// APIConfig holds backend API settings.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	RequireAuth *bool         `yaml:"require_auth"` // nil = true
}

// AuthRequired resolves RequireAuth with its default.
func (c APIConfig) AuthRequired() bool {
	return c.RequireAuth == nil || *c.RequireAuth
}

// SessionConfig selects the credential source.
type SessionConfig struct {
	Token   string `yaml:"token"`   // static token, wins over the database
	Profile string `yaml:"profile"` // row key in the session store
}

// RecencyConfig holds fetch suppression settings.
type RecencyConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
	TTL      time.Duration `yaml:"ttl"` // Redis record expiry
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// WatchConfig holds dashboard poller settings.
type WatchConfig struct {
	Interval   time.Duration `yaml:"interval"`
	PatientID  string        `yaml:"patient_id"`  // empty = admin stats only
	WindowDays int           `yaml:"window_days"` // predictions window
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
