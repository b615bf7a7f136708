package storage

import (
	"context"

	"github.com/rhuss/chatrelay/pkg/api"
)

const (
	// DefaultListLimit applies when ListChats is called without a limit.
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ChatStore persists chats and their messages.
//
// Messages are returned in ascending created_at order, ties broken by
// insertion order. Chats are listed most recently updated first.
// Implementations must be safe for concurrent use.
type ChatStore interface {
	// CreateChat inserts a chat. Returns ErrConflict if the ID is taken.
	CreateChat(ctx context.Context, chat *api.Chat) error

	// GetChat returns ErrNotFound if the chat does not exist.
	GetChat(ctx context.Context, id string) (*api.Chat, error)

	// ListChats returns at most limit chats; limit <= 0 means DefaultListLimit.
	ListChats(ctx context.Context, limit int) ([]*api.Chat, error)

	// UpdateChatTitle sets the title and bumps updated_at.
	UpdateChatTitle(ctx context.Context, id, title string) error

	// TouchChat bumps updated_at.
	TouchChat(ctx context.Context, id string) error

	// AppendMessage adds a message to an existing chat. Returns
	// ErrNotFound if the chat does not exist.
	AppendMessage(ctx context.Context, msg *api.StoredMessage) error

	// ListMessages returns ErrNotFound if the chat does not exist.
	ListMessages(ctx context.Context, chatID string) ([]*api.StoredMessage, error)

	CountChats(ctx context.Context) (int, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// Limit normalizes a list limit into [1, MaxListLimit].
func Limit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	}
	return limit
}
