package api

import "time"

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is a single turn of a conversation. Order within a slice of
// messages is conversation order.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
//
// Model, Temperature and UpstreamBase are optional; the relay fills them
// from configuration. OllamaBase is accepted as an alias of UpstreamBase
// for clients built against the older field name.
type ChatRequest struct {
	Messages     []ChatMessage `json:"messages"`
	Model        string        `json:"model,omitempty"`
	Temperature  *float64      `json:"temperature,omitempty"`
	WebAssist    bool          `json:"webAssist,omitempty"`
	UpstreamBase string        `json:"upstreamBase,omitempty"`
	OllamaBase   string        `json:"ollamaBase,omitempty"`
}

// Base returns the upstream base URL requested by the client, if any.
func (r *ChatRequest) Base() string {
	if r.UpstreamBase != "" {
		return r.UpstreamBase
	}
	return r.OllamaBase
}

// LastUserMessage returns the content of the most recent user message,
// or the empty string if the conversation has none.
func LastUserMessage(msgs []ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// DefaultChatTitle is the title given to chats before the first user
// message names them.
const DefaultChatTitle = "New Chat"

// Chat is a persisted conversation.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoredMessage is a persisted conversation turn.
type StoredMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"-"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToChatMessages strips persistence metadata from stored messages.
func ToChatMessages(stored []*StoredMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// SendMessageRequest is the body of POST /api/chat/{id}/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// HealthStatus is the body returned by GET /api/health.
type HealthStatus struct {
	OK     bool   `json:"ok"`
	Chats  int    `json:"chats"`
	OpenAI bool   `json:"openai"`
	Error  string `json:"error,omitempty"`
}

// SearchResult is a single entry returned by GET /api/search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Extract string `json:"extract"`
}

// SearchResponse is the body returned by GET /api/search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}
