package ollama

import "time"

// Config holds configuration for the Ollama client.
type Config struct {
	// BaseURL is the default server URL (e.g., "http://127.0.0.1:11434").
	// Individual requests may target another base.
	BaseURL string

	// Timeout for non-streaming requests. Defaults to 120s. Streaming
	// requests are bounded only by their context.
	Timeout time.Duration
}

// DefaultBaseURL is the address a local Ollama listens on.
const DefaultBaseURL = "http://127.0.0.1:11434"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(baseURL string) Config {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Config{
		BaseURL: baseURL,
		Timeout: 120 * time.Second,
	}
}
