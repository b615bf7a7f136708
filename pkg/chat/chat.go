// Package chat manages persisted conversation threads: it creates chats on
// first use, records user and assistant turns, generates replies through a
// completion.Completer and names chats after their first user message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/completion"
	"github.com/rhuss/chatrelay/pkg/debug"
	"github.com/rhuss/chatrelay/pkg/storage"
)

// SeedSystemMessage opens every new chat.
const SeedSystemMessage = "You are a helpful AI assistant."

// titleRunes is the number of runes of the first user message kept in an
// automatic title.
const titleRunes = 40

// Service implements the chat thread operations.
type Service struct {
	store      storage.ChatStore
	completer  completion.Completer
	maxContent int
	now        func() time.Time
}

// New creates a Service. completer must not be nil.
func New(store storage.ChatStore, completer completion.Completer) *Service {
	return &Service{
		store:      store,
		completer:  completer,
		maxContent: api.DefaultValidationConfig().MaxContentSize,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Messages returns the thread in ascending order, creating an empty seeded
// chat when id is unknown.
func (s *Service) Messages(ctx context.Context, id string) ([]*api.StoredMessage, error) {
	if !api.ValidateChatID(id) {
		return nil, api.NewInvalidRequestError("id", "invalid chat id")
	}
	if _, err := s.ensure(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// Send records a user message, generates and records the assistant reply,
// and returns the updated thread. Content is trimmed; blank content is
// rejected with an invalid_request error.
func (s *Service) Send(ctx context.Context, id, content string) ([]*api.StoredMessage, error) {
	if !api.ValidateChatID(id) {
		return nil, api.NewInvalidRequestError("id", "invalid chat id")
	}
	content, apiErr := api.ValidateMessageContent(content)
	if apiErr != nil {
		return nil, apiErr
	}
	if s.maxContent > 0 && len(content) > s.maxContent {
		return nil, api.NewInvalidRequestError("content", fmt.Sprintf("content exceeds maximum of %d bytes", s.maxContent))
	}

	chat, err := s.ensure(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.append(ctx, id, api.RoleUser, content); err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	reply, err := s.completer.Complete(ctx, api.ToChatMessages(history))
	if err != nil {
		return nil, fmt.Errorf("generating reply: %w", err)
	}
	if err := s.append(ctx, id, api.RoleAssistant, reply); err != nil {
		return nil, err
	}

	if chat.Title == api.DefaultChatTitle {
		err = s.store.UpdateChatTitle(ctx, id, AutoTitle(content))
	} else {
		err = s.store.TouchChat(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("updating chat: %w", err)
	}

	msgs, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// Create starts a new seeded chat with a generated ID.
func (s *Service) Create(ctx context.Context) (*api.Chat, error) {
	return s.create(ctx, api.NewChatID())
}

// List returns the most recently updated chats.
func (s *Service) List(ctx context.Context, limit int) ([]*api.Chat, error) {
	chats, err := s.store.ListChats(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	return chats, nil
}

// Count returns the number of stored chats.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountChats(ctx)
}

// AutoTitle derives a chat title from the first user message: its first
// 40 runes, with an ellipsis appended when it was longer.
func AutoTitle(content string) string {
	if utf8.RuneCountInString(content) <= titleRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleRunes]) + "…"
}

// ensure returns the chat, creating it when missing. A concurrent creator
// winning the race is not an error.
func (s *Service) ensure(ctx context.Context, id string) (*api.Chat, error) {
	chat, err := s.store.GetChat(ctx, id)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading chat: %w", err)
	}

	chat, err = s.create(ctx, id)
	if errors.Is(err, storage.ErrConflict) {
		return s.store.GetChat(ctx, id)
	}
	return chat, err
}

func (s *Service) create(ctx context.Context, id string) (*api.Chat, error) {
	now := s.now()
	chat := &api.Chat{ID: id, Title: api.DefaultChatTitle, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateChat(ctx, chat); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	if err := s.append(ctx, id, api.RoleSystem, SeedSystemMessage); err != nil {
		return nil, err
	}
	slog.Info("chat created", "chat_id", id)
	return chat, nil
}

func (s *Service) append(ctx context.Context, chatID string, role api.Role, content string) error {
	msg := &api.StoredMessage{
		ID:        api.NewMessageID(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("saving %s message: %w", role, err)
	}
	debug.Log("storage", "message saved", "chat_id", chatID, "role", string(role), "bytes", len(content))
	return nil
}
