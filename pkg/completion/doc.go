// Package completion generates whole assistant replies for persisted chat
// threads. Implementations range from a hosted OpenAI model to a local
// Ollama server and a deterministic rule-based responder that works with
// no model at all.
package completion
