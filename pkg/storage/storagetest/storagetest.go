// Package storagetest holds behavior tests shared by every
// storage.ChatStore implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/storage"
)

// base is a fixed timestamp safely in the past, at microsecond precision
// so every backend round-trips it exactly.
var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Run executes the suite. newStore must return an empty store; it is
// called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.ChatStore) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.ChatStore)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CreateConflict", testCreateConflict},
		{"GetMissing", testGetMissing},
		{"AppendAndListMessages", testAppendAndList},
		{"MessagesOrderedByCreatedAt", testMessageOrder},
		{"AppendToMissingChat", testAppendMissing},
		{"DuplicateMessageID", testDuplicateMessage},
		{"ListMessagesMissingChat", testListMessagesMissing},
		{"UpdateChatTitle", testUpdateTitle},
		{"TouchChat", testTouch},
		{"ListChats", testListChats},
		{"CountChats", testCount},
		{"HealthCheck", testHealthCheck},
		{"ConcurrentAppends", testConcurrentAppends},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			tt.fn(t, s)
		})
	}
}

func newChat(id string, at time.Time) *api.Chat {
	return &api.Chat{ID: id, Title: api.DefaultChatTitle, CreatedAt: at, UpdatedAt: at}
}

func newMessage(chatID, id string, role api.Role, content string, at time.Time) *api.StoredMessage {
	return &api.StoredMessage{ID: id, ChatID: chatID, Role: role, Content: content, CreatedAt: at}
}

func mustCreate(t *testing.T, s storage.ChatStore, chat *api.Chat) {
	t.Helper()
	if err := s.CreateChat(context.Background(), chat); err != nil {
		t.Fatalf("CreateChat(%s): %v", chat.ID, err)
	}
}

func mustAppend(t *testing.T, s storage.ChatStore, msg *api.StoredMessage) {
	t.Helper()
	if err := s.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("AppendMessage(%s): %v", msg.ID, err)
	}
}

func testCreateAndGet(t *testing.T, s storage.ChatStore) {
	mustCreate(t, s, newChat("chat-1", base))

	got, err := s.GetChat(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.ID != "chat-1" || got.Title != api.DefaultChatTitle {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(base) || !got.UpdatedAt.Equal(base) {
		t.Errorf("timestamps = %v / %v, want %v", got.CreatedAt, got.UpdatedAt, base)
	}
}

func testCreateConflict(t *testing.T, s storage.ChatStore) {
	mustCreate(t, s, newChat("chat-1", base))

	err := s.CreateChat(context.Background(), newChat("chat-1", base))
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func testGetMissing(t *testing.T, s storage.ChatStore) {
	_, err := s.GetChat(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testAppendAndList(t *testing.T, s storage.ChatStore) {
	mustCreate(t, s, newChat("chat-1", base))
	mustAppend(t, s, newMessage("chat-1", "msg_1", api.RoleSystem, "You are a helpful AI assistant.", base))
	mustAppend(t, s, newMessage("chat-1", "msg_2", api.RoleUser, "hi", base))
	mustAppend(t, s, newMessage("chat-1", "msg_3", api.RoleAssistant, "Hello!", base))

	msgs, err := s.ListMessages(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"msg_1", "msg_2", "msg_3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %q, want %q (ties must keep insertion order)", i, msgs[i].ID, want)
		}
	}
	if msgs[1].Role != api.RoleUser || msgs[1].Content != "hi" || msgs[1].ChatID != "chat-1" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}

func testMessageOrder(t *testing.T, s storage.ChatStore) {
	mustCreate(t, s, newChat("chat-1", base))
	mustAppend(t, s, newMessage("chat-1", "msg_late", api.RoleUser, "second", base.Add(time.Second)))
	mustAppend(t, s, newMessage("chat-1", "msg_early", api.RoleUser, "first", base))

	msgs, err := s.ListMessages(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != "msg_early" {
		t.Errorf("messages not ordered by created_at: %+v", msgs)
	}
}

func testAppendMissing(t *testing.T, s storage.ChatStore) {
	err := s.AppendMessage(context.Background(), newMessage("nope", "msg_1", api.RoleUser, "hi", base))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testDuplicateMessage(t *testing.T, s storage.ChatStore) {
	mustCreate(t, s, newChat("chat-1", base))
	mustAppend(t, s, newMessage("chat-1", "msg_1", api.RoleUser, "hi", base))

	err := s.AppendMessage(context.Background(), newMessage("chat-1", "msg_1", api.RoleUser, "again", base))
	if !errors.Is(err, storage.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func testListMessagesMissing(t *testing.T, s storage.ChatStore) {
	_, err := s.ListMessages(context.Background(), "nope")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testUpdateTitle(t *testing.T, s storage.ChatStore) {
	ctx := context.Background()
	mustCreate(t, s, newChat("chat-1", base))

	if err := s.UpdateChatTitle(ctx, "chat-1", "SQLite indexes"); err != nil {
		t.Fatalf("UpdateChatTitle: %v", err)
	}
	got, err := s.GetChat(ctx, "chat-1")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if got.Title != "SQLite indexes" {
		t.Errorf("Title = %q", got.Title)
	}
	if !got.UpdatedAt.After(base) {
		t.Errorf("UpdatedAt not bumped: %v", got.UpdatedAt)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt changed: %v", got.CreatedAt)
	}

	if err := s.UpdateChatTitle(ctx, "nope", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testTouch(t *testing.T, s storage.ChatStore) {
	ctx := context.Background()
	mustCreate(t, s, newChat("chat-1", base))

	if err := s.TouchChat(ctx, "chat-1"); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}
	got, _ := s.GetChat(ctx, "chat-1")
	if !got.UpdatedAt.After(base) {
		t.Errorf("UpdatedAt not bumped: %v", got.UpdatedAt)
	}

	if err := s.TouchChat(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testListChats(t *testing.T, s storage.ChatStore) {
	ctx := context.Background()
	mustCreate(t, s, newChat("chat-a", base))
	mustCreate(t, s, newChat("chat-b", base.Add(time.Minute)))
	mustCreate(t, s, newChat("chat-c", base.Add(2*time.Minute)))

	chats, err := s.ListChats(ctx, 0)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 3 || chats[0].ID != "chat-c" || chats[2].ID != "chat-a" {
		t.Fatalf("unexpected order: %v", ids(chats))
	}

	// Touching the oldest chat moves it to the front.
	if err := s.TouchChat(ctx, "chat-a"); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}
	chats, err = s.ListChats(ctx, 2)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 || chats[0].ID != "chat-a" || chats[1].ID != "chat-c" {
		t.Errorf("unexpected order after touch: %v", ids(chats))
	}
}

func testCount(t *testing.T, s storage.ChatStore) {
	ctx := context.Background()
	n, err := s.CountChats(ctx)
	if err != nil || n != 0 {
		t.Fatalf("CountChats = %d, %v; want 0", n, err)
	}
	mustCreate(t, s, newChat("chat-1", base))
	mustCreate(t, s, newChat("chat-2", base))

	n, err = s.CountChats(ctx)
	if err != nil || n != 2 {
		t.Errorf("CountChats = %d, %v; want 2", n, err)
	}
}

func testHealthCheck(t *testing.T, s storage.ChatStore) {
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func testConcurrentAppends(t *testing.T, s storage.ChatStore) {
	mustCreate(t, s, newChat("chat-1", base))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := newMessage("chat-1", fmt.Sprintf("msg_%02d", i), api.RoleUser, "hi", base)
			if err := s.AppendMessage(context.Background(), msg); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("AppendMessage: %v", err)
	}

	msgs, err := s.ListMessages(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != n {
		t.Errorf("got %d messages, want %d", len(msgs), n)
	}
}

func ids(chats []*api.Chat) []string {
	out := make([]string, len(chats))
	for i, c := range chats {
		out[i] = c.ID
	}
	return out
}
