package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/lucasvrm/previso/internal/infra/apiclient/retry"
)

// DefaultBaseURL is the production backend.
const DefaultBaseURL = "https://bipolar-engine.onrender.com"

// Environment overrides applied after the file is read.
const (
	EnvAPIURL  = "PREVISO_API_URL"
	EnvToken   = "PREVISO_TOKEN"
	EnvProfile = "PREVISO_PROFILE"
)

// Default returns a configuration with every default applied.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file. A missing file is not an
// error when optional is true; defaults and environment overrides still apply.
func Load(path string, optional bool) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *AppConfig) Validate() error {
	if c.Retry.MaxRetriesCap < 0 {
		return fmt.Errorf("retry.max_retries_cap must be >= 0, got %d", c.Retry.MaxRetriesCap)
	}
	if c.Retry.JitterPercent > 100 {
		return fmt.Errorf("retry.jitter_percent must be <= 100, got %d", c.Retry.JitterPercent)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Session.Token = v
	}
	if v := os.Getenv(EnvProfile); v != "" {
		cfg.Session.Profile = v
	}
	if v := os.Getenv("PREVISO_MAX_RETRIES_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetriesCap = n
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	def := retry.DefaultConfig()

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = def.BaseDelay
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = def.MaxDelay
	}
	if cfg.Retry.MaxRetriesCap == 0 {
		cfg.Retry.MaxRetriesCap = def.MaxRetriesCap
	}
	if cfg.Session.Profile == "" {
		cfg.Session.Profile = "default"
	}
	if cfg.Recency.Cooldown == 0 {
		cfg.Recency.Cooldown = 5 * time.Second
	}
	if cfg.Recency.TTL == 0 {
		cfg.Recency.TTL = 24 * time.Hour
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Watch.Interval == 0 {
		cfg.Watch.Interval = 30 * time.Second
	}
	if cfg.Watch.WindowDays == 0 {
		cfg.Watch.WindowDays = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
