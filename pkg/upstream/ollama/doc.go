// Package ollama is an HTTP client for the Ollama /api/chat endpoint.
//
// StreamChat returns the raw NDJSON response body so callers can decode
// frames incrementally. Complete performs a non-streaming request.
package ollama
