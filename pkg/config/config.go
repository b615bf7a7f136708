// Package config provides unified configuration for the chatrelay server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CHATRELAY_ prefix)
//  4. Conventional env var names (OLLAMA_BASE_URL, OLLAMA_MODEL, OPENAI_API_KEY)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Config holds all configuration for the chatrelay server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Hosted        HostedConfig        `yaml:"hosted"`
	Augment       AugmentConfig       `yaml:"augment"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
}

// UpstreamConfig holds the Ollama-compatible model server settings.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`         // default: http://127.0.0.1:11434
	DefaultModel   string        `yaml:"default_model"`    // default: llama3.1:8b
	Temperature    float64       `yaml:"temperature"`      // default: 0.2
	Timeout        time.Duration `yaml:"timeout"`          // non-streaming calls, default: 120s
	ReadBufferSize int           `yaml:"read_buffer_size"` // default: 32 KiB
}

// HostedConfig holds the hosted completion API settings used by the
// persisted chat routes.
type HostedConfig struct {
	APIKey      string  `yaml:"api_key"`
	APIKeyFile  string  `yaml:"api_key_file"` // _file variant for api_key
	BaseURL     string  `yaml:"base_url"`     // optional, OpenAI-compatible endpoint
	Model       string  `yaml:"model"`        // default: gpt-4o-mini
	Temperature float64 `yaml:"temperature"`  // default: 0.3
	MaxRetries  int     `yaml:"max_retries"`  // default: 2

	// Fallback is used when no API key is set or the hosted call fails:
	// "local" (rule-based replies) or "ollama" (the upstream model server).
	Fallback string `yaml:"fallback"` // default: local
}

// Enabled reports whether the hosted completion API is configured.
func (h HostedConfig) Enabled() bool {
	return h.APIKey != ""
}

// AugmentConfig holds knowledge lookup settings for web-assisted chats
// and the search route.
type AugmentConfig struct {
	Backend          string `yaml:"backend"`            // "wikipedia", "searxng" or "none", default: wikipedia
	WikipediaURL     string `yaml:"wikipedia_url"`      // default: https://en.wikipedia.org/w/api.php
	WikipediaRESTURL string `yaml:"wikipedia_rest_url"` // default: https://en.wikipedia.org/api/rest_v1
	SearXNGURL       string `yaml:"searxng_url"`        // required when backend is searxng
	UserAgent        string `yaml:"user_agent"`
	Limit            int    `yaml:"limit"` // default: 3
}

// StorageConfig holds chat persistence settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres" or "sqlite", default: "memory"
	MaxSize  int            `yaml:"max_size"` // max chats in the memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path        string        `yaml:"path"`         // default: chatrelay.db
	BusyTimeout time.Duration `yaml:"busy_timeout"` // default: 5s
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. CHATRELAY_LOG_LEVEL and
// CHATRELAY_DEBUG take precedence at startup.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Format string `yaml:"format"` // "text" or "json", default: text
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		Upstream: UpstreamConfig{
			BaseURL:        "http://127.0.0.1:11434",
			DefaultModel:   "llama3.1:8b",
			Temperature:    0.2,
			Timeout:        120 * time.Second,
			ReadBufferSize: 32 * 1024,
		},
		Hosted: HostedConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxRetries:  2,
			Fallback:    "local",
		},
		Augment: AugmentConfig{
			Backend:          "wikipedia",
			WikipediaURL:     "https://en.wikipedia.org/w/api.php",
			WikipediaRESTURL: "https://en.wikipedia.org/api/rest_v1",
			Limit:            3,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
			SQLite: SQLiteConfig{
				Path:        "chatrelay.db",
				BusyTimeout: 5 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
