package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/observability"
	"github.com/rhuss/chatrelay/pkg/relay"
	"github.com/rhuss/chatrelay/pkg/storage"
	"github.com/rhuss/chatrelay/pkg/transport"
)

// SearchLimit is the number of results returned by the search route.
const SearchLimit = 5

// Adapter serves the chatrelay API over HTTP.
// It routes requests to the appropriate handler and serializes responses.
type Adapter struct {
	streamer transport.ChatStreamer
	chats    transport.ChatService   // nil disables the chat routes
	search   transport.SearchService // nil returns empty search results
	health   transport.HealthChecker // nil skips the store check
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	Validation  api.ValidationConfig

	// OpenAIEnabled is reported by the health route.
	OpenAIEnabled bool
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
		Validation:  api.DefaultValidationConfig(),
	}
}

// Services bundles the optional backends of the JSON routes.
type Services struct {
	Chats  transport.ChatService
	Search transport.SearchService
	Health transport.HealthChecker
}

// NewAdapter creates an HTTP adapter for the given ChatStreamer.
// Middleware is applied to the streamer in the given order.
func NewAdapter(streamer transport.ChatStreamer, svc Services, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		streamer = transport.Chain(middlewares...)(streamer)
	}

	a := &Adapter{
		streamer: streamer,
		chats:    svc.Chats,
		search:   svc.Search,
		health:   svc.Health,
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /api/chat", a.handleChat)
	a.mux.HandleFunc("GET /api/chat/{id}/messages", a.handleListMessages)
	a.mux.HandleFunc("POST /api/chat/{id}/messages", a.handleSendMessage)
	a.mux.HandleFunc("GET /api/chats", a.handleListChats)
	a.mux.HandleFunc("POST /api/chats", a.handleCreateChat)
	a.mux.HandleFunc("GET /api/search", a.handleSearch)
	a.mux.HandleFunc("GET /api/health", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation and request metrics.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(observability.MetricsMiddleware(a.mux))
}

// httpRequestIDMiddleware is HTTP-level middleware that propagates the
// X-Request-ID header. A missing ID is generated, so every response
// carries one.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// handleChat handles POST /api/chat: the streaming relay.
func (a *Adapter) handleChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if apiErr := api.ValidateChatRequest(&req, a.config.Validation); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	sw := newTextStreamWriter(w)
	err := a.streamer.StreamChat(r.Context(), &req, sw)
	if err == nil {
		sw.Finish()
		return
	}

	if sw.Started() {
		// Status is already on the wire; the client sees a truncated body.
		debug.Log("transport", "relay ended after streaming started",
			"request_id", transport.RequestIDFromContext(r.Context()), "error", err)
		return
	}

	var uerr *relay.UpstreamError
	if errors.As(err, &uerr) {
		writePlainError(w, http.StatusBadGateway, uerr.Error())
		return
	}
	transport.WriteError(w, err)
}

// writePlainError answers a relay failure with a non-streaming text body.
func writePlainError(w http.ResponseWriter, status int, msg string) {
	setStreamHeaders(w.Header())
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

// handleListMessages handles GET /api/chat/{id}/messages.
func (a *Adapter) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if !a.requireChats(w) {
		return
	}
	msgs, err := a.chats.Messages(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleSendMessage handles POST /api/chat/{id}/messages.
func (a *Adapter) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if !a.requireChats(w) {
		return
	}
	var req api.SendMessageRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	msgs, err := a.chats.Send(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleListChats handles GET /api/chats.
func (a *Adapter) handleListChats(w http.ResponseWriter, r *http.Request) {
	if !a.requireChats(w) {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			transport.WriteAPIError(w, api.NewInvalidRequestError("limit", "limit must be a positive integer"))
			return
		}
		limit = storage.Limit(n)
	}
	chats, err := a.chats.List(r.Context(), limit)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// handleCreateChat handles POST /api/chats.
func (a *Adapter) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	if !a.requireChats(w) {
		return
	}
	chat, err := a.chats.Create(r.Context())
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// handleSearch handles GET /api/search?q=. Lookup failures degrade to an
// empty result list.
func (a *Adapter) handleSearch(w http.ResponseWriter, r *http.Request) {
	resp := api.SearchResponse{Results: []api.SearchResult{}}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || a.search == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	results, err := a.search.Summaries(r.Context(), q, SearchLimit)
	if err != nil {
		slog.Warn("search failed", "query", q, "error", err)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	for _, res := range results {
		resp.Results = append(resp.Results, api.SearchResult{
			Title:   res.Title,
			URL:     res.URL,
			Extract: res.Extract,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /api/health.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := api.HealthStatus{OK: true, OpenAI: a.config.OpenAIEnabled}

	if a.health != nil {
		if err := a.health.HealthCheck(r.Context()); err != nil {
			status.OK = false
			status.Error = err.Error()
		}
	}
	if status.OK && a.chats != nil {
		n, err := a.chats.Count(r.Context())
		if err != nil {
			status.OK = false
			status.Error = err.Error()
		}
		status.Chats = n
	}

	code := http.StatusOK
	if !status.OK {
		slog.Warn("health check failed", "error", status.Error)
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (a *Adapter) requireChats(w http.ResponseWriter) bool {
	if a.chats != nil {
		return true
	}
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("", "chat persistence is not available (no store configured)"),
		http.StatusNotImplemented,
	)
	return false
}

// decodeJSON checks the content type, limits the body size and decodes the
// body into v. It writes the error response and returns false on failure.
func (a *Adapter) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

// writeServiceError logs unexpected failures and writes the JSON error.
func (a *Adapter) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := transport.AsAPIError(err)
	if apiErr.Type == api.ErrorTypeServerError {
		slog.Error("request failed",
			"request_id", transport.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	transport.WriteAPIError(w, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
