package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/chat"
	"github.com/rhuss/chatrelay/pkg/completion"
)

func createChat(t *testing.T) *api.Chat {
	t.Helper()
	resp := postJSON(t, testEnv.BaseURL()+"/api/chats", map[string]any{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var c api.Chat
	decodeJSON(t, resp, &c)
	return &c
}

func sendMessage(t *testing.T, id, content string) []api.StoredMessage {
	t.Helper()
	resp := postJSON(t, testEnv.BaseURL()+"/api/chat/"+id+"/messages", map[string]any{"content": content})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var msgs []api.StoredMessage
	decodeJSON(t, resp, &msgs)
	return msgs
}

func TestCreateChatIsSeeded(t *testing.T) {
	c := createChat(t)
	if c.ID == "" {
		t.Fatal("created chat has no id")
	}
	if c.Title != api.DefaultChatTitle {
		t.Errorf("title = %q, want %q", c.Title, api.DefaultChatTitle)
	}

	var msgs []api.StoredMessage
	decodeJSON(t, getURL(t, testEnv.BaseURL()+"/api/chat/"+c.ID+"/messages"), &msgs)

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Role != api.RoleSystem || msgs[0].Content != chat.SeedSystemMessage {
		t.Errorf("seed message = %+v", msgs[0])
	}
}

func TestSendMessageUsesUpstream(t *testing.T) {
	c := createChat(t)

	msgs := sendMessage(t, c.ID, "  count from 1 to 5  ")
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[1].Role != api.RoleUser || msgs[1].Content != "count from 1 to 5" {
		t.Errorf("user message = %+v", msgs[1])
	}
	if msgs[2].Role != api.RoleAssistant || msgs[2].Content != "1, 2, 3, 4, 5" {
		t.Errorf("assistant message = %+v", msgs[2])
	}

	reqs := testEnv.Mock.Requests()
	last := reqs[len(reqs)-1]
	if last.Streaming() {
		t.Error("completion request should not stream")
	}
	if len(last.Messages) != 2 || last.Messages[0].Role != "system" {
		t.Errorf("completion history = %+v", last.Messages)
	}
}

func TestSendMessageFallsBackToLocal(t *testing.T) {
	c := createChat(t)

	msgs := sendMessage(t, c.ID, "[fail] tell me something")
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	want := completion.LocalReply("[fail] tell me something")
	if msgs[2].Content != want {
		t.Errorf("assistant reply = %q, want local reply %q", msgs[2].Content, want)
	}
}

func TestSendMessageAutoTitles(t *testing.T) {
	c := createChat(t)
	long := strings.Repeat("abcdefghij", 5)

	sendMessage(t, c.ID, long)
	sendMessage(t, c.ID, "second message keeps the title")

	var chats []api.Chat
	decodeJSON(t, getURL(t, testEnv.BaseURL()+"/api/chats"), &chats)

	var got *api.Chat
	for i := range chats {
		if chats[i].ID == c.ID {
			got = &chats[i]
		}
	}
	if got == nil {
		t.Fatalf("chat %s not listed", c.ID)
	}
	if got.Title != chat.AutoTitle(long) {
		t.Errorf("title = %q, want %q", got.Title, chat.AutoTitle(long))
	}
}

func TestMessagesCreatesUnknownChat(t *testing.T) {
	var msgs []api.StoredMessage
	decodeJSON(t, getURL(t, testEnv.BaseURL()+"/api/chat/client-picked-id/messages"), &msgs)

	if len(msgs) != 1 || msgs[0].Role != api.RoleSystem {
		t.Errorf("messages = %+v, want seeded thread", msgs)
	}
}

func TestSendBlankMessage(t *testing.T) {
	c := createChat(t)
	resp := postJSON(t, testEnv.BaseURL()+"/api/chat/"+c.ID+"/messages", map[string]any{"content": "   "})

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	decodeJSON(t, resp, &errResp)
	if errResp.Error == nil || errResp.Error.Message != "Missing content" {
		t.Errorf("error = %+v", errResp.Error)
	}
}

func TestInvalidChatID(t *testing.T) {
	resp := getURL(t, testEnv.BaseURL()+"/api/chat/bad.id/messages")
	readBody(t, resp)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestListChatsLimit(t *testing.T) {
	createChat(t)
	createChat(t)

	var chats []api.Chat
	decodeJSON(t, getURL(t, testEnv.BaseURL()+"/api/chats?limit=1"), &chats)
	if len(chats) != 1 {
		t.Errorf("got %d chats, want 1", len(chats))
	}

	resp := getURL(t, testEnv.BaseURL()+"/api/chats?limit=zero")
	readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", resp.StatusCode)
	}
}
