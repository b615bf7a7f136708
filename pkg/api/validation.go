package api

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxMessages    int
	MaxContentSize int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxMessages:    1000,
		MaxContentSize: 1 * 1024 * 1024, // 1MB per message
	}
}

// ValidateChatRequest checks a ChatRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
func ValidateChatRequest(req *ChatRequest, cfg ValidationConfig) *APIError {
	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must contain at least one message")
	}

	if cfg.MaxMessages > 0 && len(req.Messages) > cfg.MaxMessages {
		return NewInvalidRequestError("messages",
			fmt.Sprintf("messages exceeds maximum of %d entries", cfg.MaxMessages))
	}

	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].role", i),
				fmt.Sprintf("unknown role %q: must be system, user, or assistant", m.Role))
		}
		if cfg.MaxContentSize > 0 && len(m.Content) > cfg.MaxContentSize {
			return NewInvalidRequestError(fmt.Sprintf("messages[%d].content", i),
				fmt.Sprintf("content exceeds maximum of %d bytes", cfg.MaxContentSize))
		}
	}

	if req.Temperature != nil {
		if *req.Temperature < 0.0 || *req.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	if base := req.Base(); base != "" {
		if apiErr := validateBaseURL(base); apiErr != nil {
			return apiErr
		}
	}

	return nil
}

// ValidateMessageContent trims content and rejects it when empty.
func ValidateMessageContent(content string) (string, *APIError) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", NewInvalidRequestError("content", "Missing content")
	}
	return trimmed, nil
}

func validateBaseURL(base string) *APIError {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return NewInvalidRequestError("upstreamBase", fmt.Sprintf("invalid upstream base URL %q", base))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewInvalidRequestError("upstreamBase", "upstream base URL must use http or https")
	}
	return nil
}
