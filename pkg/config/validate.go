package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if err := validateHTTPURL("upstream.base_url", c.Upstream.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Upstream.DefaultModel == "" {
		errs = append(errs, fmt.Errorf("upstream.default_model is required"))
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		errs = append(errs, fmt.Errorf("upstream.temperature must be between 0 and 2, got %g", c.Upstream.Temperature))
	}

	switch c.Hosted.Fallback {
	case "local", "ollama":
	default:
		errs = append(errs, fmt.Errorf("hosted.fallback must be \"local\" or \"ollama\", got %q", c.Hosted.Fallback))
	}
	if c.Hosted.BaseURL != "" {
		if err := validateHTTPURL("hosted.base_url", c.Hosted.BaseURL); err != nil {
			errs = append(errs, err)
		}
	}

	switch c.Augment.Backend {
	case "wikipedia", "none":
	case "searxng":
		if c.Augment.SearXNGURL == "" {
			errs = append(errs, fmt.Errorf("augment.searxng_url is required when augment.backend is \"searxng\""))
		}
	default:
		errs = append(errs, fmt.Errorf("augment.backend must be \"wikipedia\", \"searxng\", or \"none\", got %q", c.Augment.Backend))
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, fmt.Errorf("storage.sqlite.path is required when storage.type is \"sqlite\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"postgres\", or \"sqlite\", got %q", c.Storage.Type))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}
