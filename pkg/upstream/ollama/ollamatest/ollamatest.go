// Package ollamatest provides a deterministic Ollama-compatible chat server
// for tests and local development.
//
// Replies depend on the last user message:
//
//	contains "count from 1 to 5"  -> "1, 2, 3, 4, 5"
//	contains "[fail]"             -> HTTP 500 with body "mock failure"
//	contains "[garbage]"          -> valid frames interleaved with malformed lines
//	anything else                 -> "Hello, nice day!"
package ollamatest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// DefaultModel is reported when a request names no model.
const DefaultModel = "mock-model"

// Request is a decoded /api/chat request body.
type Request struct {
	Model    string    `json:"model"`
	Stream   *bool     `json:"stream,omitempty"`
	Messages []Message `json:"messages"`
	Options  struct {
		Temperature *float64 `json:"temperature,omitempty"`
	} `json:"options"`
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Streaming reports whether the client asked for NDJSON streaming.
// Ollama streams unless told otherwise.
func (r *Request) Streaming() bool {
	return r.Stream == nil || *r.Stream
}

// LastUserMessage returns the most recent user content.
func (r *Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Handler serves /api/chat, /api/tags and /healthz.
type Handler struct {
	// SplitFrames writes every frame in two flushed halves so that
	// clients must reassemble lines across reads.
	SplitFrames bool

	// Delay is slept between frames.
	Delay time.Duration

	mu       sync.Mutex
	requests []Request
}

// NewServer starts an httptest.Server backed by a new Handler.
func NewServer() (*httptest.Server, *Handler) {
	h := &Handler{}
	return httptest.NewServer(h), h
}

// Requests returns a copy of the chat requests received so far.
func (h *Handler) Requests() []Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Request(nil), h.requests...)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/chat":
		h.handleChat(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/tags":
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"models":[{"name":"`+DefaultModel+`"}]}`)
	case r.Method == http.MethodGet && r.URL.Path == "/healthz":
		io.WriteString(w, "ok\n")
	default:
		http.NotFound(w, r)
	}
}

// Tokens returns the reply fragments for a user message.
func Tokens(lastUser string) []string {
	if strings.Contains(strings.ToLower(lastUser), "count from 1 to 5") {
		return []string{"1", ", ", "2", ", ", "3", ", ", "4", ", ", "5"}
	}
	return []string{"Hello", ", ", "nice", " ", "day", "!"}
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	h.requests = append(h.requests, req)
	h.mu.Unlock()

	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	last := req.LastUserMessage()

	if strings.Contains(last, "[fail]") {
		http.Error(w, "mock failure", http.StatusInternalServerError)
		return
	}

	tokens := Tokens(last)

	if !req.Streaming() {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(frame(model, strings.Join(tokens, ""), true))
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	garbage := strings.Contains(last, "[garbage]")

	for _, tok := range tokens {
		h.writeLine(w, frame(model, tok, false))
		if garbage {
			h.writeRaw(w, "{not json\n")
		}
		if h.Delay > 0 {
			time.Sleep(h.Delay)
		}
	}
	h.writeLine(w, frame(model, "", true))
}

func frame(model, content string, done bool) map[string]any {
	f := map[string]any{
		"model":      model,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		"message":    map[string]string{"role": "assistant", "content": content},
		"done":       done,
	}
	if done {
		f["done_reason"] = "stop"
	}
	return f
}

func (h *Handler) writeLine(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("ollamatest: marshal frame: %v", err))
	}
	h.writeRaw(w, string(b)+"\n")
}

func (h *Handler) writeRaw(w http.ResponseWriter, s string) {
	fl, _ := w.(http.Flusher)
	if h.SplitFrames && len(s) > 1 {
		mid := len(s) / 2
		io.WriteString(w, s[:mid])
		if fl != nil {
			fl.Flush()
		}
		s = s[mid:]
	}
	io.WriteString(w, s)
	if fl != nil {
		fl.Flush()
	}
}
