// Package config defines service configuration and its loading rules.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers defaults, an optional YAML file and MU3_* env vars.
// - Validate reports ErrInvalidConfig for values the service cannot run with.
package config

import (
	"fmt"
	"time"
)

// Storage drivers understood by the storage adapter.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	AppName         string `koanf:"app_name"`
	AppDescription  string `koanf:"app_description"`
	AppVersion      string `koanf:"app_version"`
	DefaultLanguage string `koanf:"default_language"`

	// APIBaseURL points the OpenAI-compatible backend at a custom endpoint.
	APIBaseURL       string `koanf:"api_base_url"`
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	AnthropicBaseURL string `koanf:"anthropic_base_url"`

	// DemoMode never attaches a real AI capability; every call uses fallback content.
	DemoMode bool `koanf:"demo_mode"`
	// Debug exposes stack traces on the top-level error response.
	Debug bool `koanf:"debug"`

	ReadinessTimeoutMS int `koanf:"readiness_timeout_ms"`
	RequestTimeoutMS   int `koanf:"request_timeout_ms"`
	StreamDelayMS      int `koanf:"stream_delay_ms"`
	StreamBuffer       int `koanf:"stream_buffer"`
	RetryAttempts      int `koanf:"retry_attempts"`
	RetryDelayMS       int `koanf:"retry_delay_ms"`

	DefaultTemperature         float64 `koanf:"default_temperature"`
	DefaultMaxTokens           int     `koanf:"default_max_tokens"`
	StreamTemperatureThreshold float64 `koanf:"stream_temperature_threshold"`

	MaxMessagesHistory int `koanf:"max_messages_history"`
	ImageHistorySize   int `koanf:"image_history_size"`
	VoteRevealDelayMS  int `koanf:"vote_reveal_delay_ms"`
	MaxSessions        int `koanf:"max_sessions"`

	ImageModel   string `koanf:"image_model"`
	ImageSize    string `koanf:"image_size"`
	ImageQuality string `koanf:"image_quality"`

	ErrorCapacity   int `koanf:"error_capacity"`
	ErrorMirrorSize int `koanf:"error_mirror_size"`

	StorageDriver string `koanf:"storage_driver"`
	SQLitePath    string `koanf:"sqlite_path"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	StoragePrefix string `koanf:"storage_prefix"`

	// CatalogPath optionally replaces the built-in model catalog with a YAML file.
	CatalogPath string `koanf:"catalog_path"`

	ProbeOrigins   []string `koanf:"probe_origins"`
	ProbeTimeoutMS int      `koanf:"probe_timeout_ms"`

	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`
	DedupeSize  int `koanf:"dedupe_size"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MetricsEnabled mounts the scrape route and starts the gauge updaters.
	MetricsEnabled   bool              `koanf:"metrics_enabled"`
	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsRefreshMS int               `koanf:"metrics_refresh_ms"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		LogFormat:                  "text",
		Addr:                       ":9080",
		AppName:                    "Mu3",
		AppDescription:             "Arena for comparing large language model answers side by side",
		AppVersion:                 "1.0.0",
		DefaultLanguage:            "ar",
		ReadinessTimeoutMS:         10_000,
		RequestTimeoutMS:           30_000,
		StreamDelayMS:              50,
		StreamBuffer:               16,
		RetryAttempts:              3,
		RetryDelayMS:               1_000,
		DefaultTemperature:         0.7,
		DefaultMaxTokens:           500,
		StreamTemperatureThreshold: 0.5,
		MaxMessagesHistory:         50,
		ImageHistorySize:           5,
		VoteRevealDelayMS:          500,
		MaxSessions:                1_000,
		ImageModel:                 "dall-e-3",
		ImageSize:                  "1024x1024",
		ImageQuality:               "standard",
		ErrorCapacity:              100,
		ErrorMirrorSize:            10,
		StorageDriver:              StorageSQLite,
		SQLitePath:                 "mu3.db",
		ProbeOrigins:               []string{"https://api.openai.com", "https://api.anthropic.com", "https://www.google.com"},
		ProbeTimeoutMS:             5_000,
		QueueSize:                  1_024,
		WorkerCount:                2,
		DedupeSize:                 10_000,
		CORSAllowedOrigins:         []string{"*"},
		MetricsEnabled:             true,
		MetricsNamespace:           "mu3",
		MetricsRefreshMS:           10_000,
	}
}

// Validate checks invariants the service relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StorageDriver != StorageMemory && c.StorageDriver != StorageSQLite && c.StorageDriver != StorageRedis:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	case c.StorageDriver == StorageRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr is required for the redis driver", ErrInvalidConfig)
	case c.ErrorCapacity < 1 || c.ErrorMirrorSize < 0 || c.ErrorMirrorSize > c.ErrorCapacity:
		return fmt.Errorf("%w: error_capacity/error_mirror_size out of range", ErrInvalidConfig)
	case c.ImageHistorySize < 1 || c.MaxMessagesHistory < 1:
		return fmt.Errorf("%w: history sizes must be positive", ErrInvalidConfig)
	case c.StreamTemperatureThreshold < 0 || c.StreamTemperatureThreshold > 2:
		return fmt.Errorf("%w: stream_temperature_threshold must be within [0,2]", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.MetricsEnabled && c.MetricsRefreshMS < 1:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

// ReadinessTimeout is the capability wait window.
func (c *Config) ReadinessTimeout() time.Duration { return ms(c.ReadinessTimeoutMS) }

// RequestTimeout bounds one provider call.
func (c *Config) RequestTimeout() time.Duration { return ms(c.RequestTimeoutMS) }

// StreamDelay paces fallback stream fragments.
func (c *Config) StreamDelay() time.Duration { return ms(c.StreamDelayMS) }

// RetryDelay is the pause between provider retries.
func (c *Config) RetryDelay() time.Duration { return ms(c.RetryDelayMS) }

// VoteRevealDelay is the pause between a vote and the model reveal.
func (c *Config) VoteRevealDelay() time.Duration { return ms(c.VoteRevealDelayMS) }

// ProbeTimeout bounds each connectivity probe.
func (c *Config) ProbeTimeout() time.Duration { return ms(c.ProbeTimeoutMS) }

// MetricsRefresh is how often the gauge updaters sample.
func (c *Config) MetricsRefresh() time.Duration { return ms(c.MetricsRefreshMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
