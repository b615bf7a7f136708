package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, CHATRELAY_CONFIG env, ./config.yaml, /etc/chatrelay/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. CHATRELAY_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/chatrelay/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("CHATRELAY_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/chatrelay/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so that typos do not pass silently.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps environment variables to config fields.
// Unparseable numeric values are logged and ignored.
func applyEnvOverrides(cfg *Config) {
	// Conventional names shared with the Ollama and OpenAI tooling. The
	// CHATRELAY_ variants below take precedence.
	setString("OLLAMA_BASE_URL", &cfg.Upstream.BaseURL)
	setString("OLLAMA_MODEL", &cfg.Upstream.DefaultModel)
	setString("OPENAI_API_KEY", &cfg.Hosted.APIKey)
	setString("OPENAI_BASE_URL", &cfg.Hosted.BaseURL)

	setInt("CHATRELAY_PORT", &cfg.Server.Port)
	setDuration("CHATRELAY_READ_TIMEOUT", &cfg.Server.ReadTimeout)

	setString("CHATRELAY_UPSTREAM_URL", &cfg.Upstream.BaseURL)
	setString("CHATRELAY_MODEL", &cfg.Upstream.DefaultModel)
	setFloat("CHATRELAY_TEMPERATURE", &cfg.Upstream.Temperature)
	setDuration("CHATRELAY_UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout)

	setString("CHATRELAY_HOSTED_API_KEY", &cfg.Hosted.APIKey)
	setString("CHATRELAY_HOSTED_MODEL", &cfg.Hosted.Model)
	setString("CHATRELAY_HOSTED_FALLBACK", &cfg.Hosted.Fallback)

	setString("CHATRELAY_AUGMENT_BACKEND", &cfg.Augment.Backend)
	setString("CHATRELAY_SEARXNG_URL", &cfg.Augment.SearXNGURL)

	setString("CHATRELAY_STORAGE", &cfg.Storage.Type)
	setInt("CHATRELAY_STORAGE_SIZE", &cfg.Storage.MaxSize)
	setString("CHATRELAY_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	setString("CHATRELAY_SQLITE_PATH", &cfg.Storage.SQLite.Path)

	setString("CHATRELAY_LOG_FORMAT", &cfg.Logging.Format)
}

func setString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring invalid environment value", "key", key, "value", v)
		return
	}
	*dst = n
}

func setFloat(key string, dst *float64) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring invalid environment value", "key", key, "value", v)
		return
	}
	*dst = f
}

func setDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid environment value", "key", key, "value", v)
		return
	}
	*dst = d
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// hosted.api_key_file -> hosted.api_key
	if cfg.Hosted.APIKeyFile != "" && cfg.Hosted.APIKey == "" {
		val, err := readSecretFile(cfg.Hosted.APIKeyFile)
		if err != nil {
			return fmt.Errorf("hosted.api_key_file: %w", err)
		}
		cfg.Hosted.APIKey = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
