// Package memory provides an in-memory implementation of storage.ChatStore
// for testing and lightweight deployments. Chats are lost when the process
// restarts. Optional LRU eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/storage"
)

// entry holds a chat, its messages and its LRU position.
type entry struct {
	chat     api.Chat
	messages []*api.StoredMessage
	lruElem  *list.Element
}

// Store is an in-memory ChatStore with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	msgIDs  map[string]string // message ID -> chat ID
	lruList *list.List        // front = most recently written, back = least
	maxSize int               // 0 = unlimited
}

// Ensure Store implements storage.ChatStore at compile time.
var _ storage.ChatStore = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently written chat and its
// messages are evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		msgIDs:  make(map[string]string),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// CreateChat stores a new chat.
func (s *Store) CreateChat(_ context.Context, chat *api.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[chat.ID]; exists {
		return storage.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(chat.ID)
	s.entries[chat.ID] = &entry{chat: *chat, lruElem: elem}
	return nil
}

// GetChat returns a copy of the chat.
func (s *Store) GetChat(_ context.Context, id string) (*api.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	chat := e.chat
	return &chat, nil
}

// ListChats returns chats ordered by updated_at descending.
func (s *Store) ListChats(_ context.Context, limit int) ([]*api.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]*api.Chat, 0, len(s.entries))
	for _, e := range s.entries {
		chat := e.chat
		chats = append(chats, &chat)
	}

	sort.Slice(chats, func(i, j int) bool {
		if !chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
		}
		return chats[i].ID > chats[j].ID
	})

	if limit = storage.Limit(limit); len(chats) > limit {
		chats = chats[:limit]
	}
	return chats, nil
}

// UpdateChatTitle sets the chat title and bumps updated_at.
func (s *Store) UpdateChatTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return storage.ErrNotFound
	}
	e.chat.Title = title
	s.touch(e)
	return nil
}

// TouchChat bumps updated_at.
func (s *Store) TouchChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.touch(e)
	return nil
}

// AppendMessage adds a message to the end of a chat.
func (s *Store) AppendMessage(_ context.Context, msg *api.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[msg.ChatID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, dup := s.msgIDs[msg.ID]; dup {
		return storage.ErrConflict
	}

	m := *msg
	e.messages = append(e.messages, &m)
	s.msgIDs[msg.ID] = msg.ChatID
	s.lruList.MoveToFront(e.lruElem)
	return nil
}

// ListMessages returns copies of the chat's messages in ascending
// created_at order, ties kept in insertion order.
func (s *Store) ListMessages(_ context.Context, chatID string) ([]*api.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[chatID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := make([]*api.StoredMessage, len(e.messages))
	for i, m := range e.messages {
		c := *m
		out[i] = &c
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CountChats returns the number of stored chats.
func (s *Store) CountChats(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// touch bumps updated_at and the LRU position. Must be called with s.mu held.
func (s *Store) touch(e *entry) {
	now := time.Now().UTC()
	if !now.After(e.chat.UpdatedAt) {
		now = e.chat.UpdatedAt.Add(time.Microsecond)
	}
	e.chat.UpdatedAt = now
	s.lruList.MoveToFront(e.lruElem)
}

// evictOldest removes the least recently written chat.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	if e, ok := s.entries[id]; ok {
		for _, m := range e.messages {
			delete(s.msgIDs, m.ID)
		}
	}
	delete(s.entries, id)
}
