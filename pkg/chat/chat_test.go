package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/completion"
	"github.com/rhuss/chatrelay/pkg/storage/memory"
)

type echoCompleter struct {
	seen [][]api.ChatMessage
	err  error
}

func (e *echoCompleter) Complete(_ context.Context, msgs []api.ChatMessage) (string, error) {
	e.seen = append(e.seen, msgs)
	if e.err != nil {
		return "", e.err
	}
	return "echo: " + api.LastUserMessage(msgs), nil
}

func TestMessagesAutoCreatesChat(t *testing.T) {
	store := memory.New(0)
	svc := New(store, completion.Local{})

	msgs, err := svc.Messages(context.Background(), "fresh-chat")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, api.RoleSystem, msgs[0].Role)
	require.Equal(t, SeedSystemMessage, msgs[0].Content)

	chat, err := store.GetChat(context.Background(), "fresh-chat")
	require.NoError(t, err)
	require.Equal(t, api.DefaultChatTitle, chat.Title)

	// A second read does not seed again.
	msgs, err = svc.Messages(context.Background(), "fresh-chat")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestMessagesRejectsInvalidID(t *testing.T) {
	svc := New(memory.New(0), completion.Local{})

	_, err := svc.Messages(context.Background(), "bad id/../")
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, api.ErrorTypeInvalidRequest, apiErr.Type)
}

func TestSendRecordsTurnsAndTitles(t *testing.T) {
	store := memory.New(0)
	comp := &echoCompleter{}
	svc := New(store, comp)
	ctx := context.Background()

	msgs, err := svc.Send(ctx, "chat-1", "  How do SQLite indexes work  ")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, api.RoleSystem, msgs[0].Role)
	require.Equal(t, api.RoleUser, msgs[1].Role)
	require.Equal(t, "How do SQLite indexes work", msgs[1].Content)
	require.Equal(t, api.RoleAssistant, msgs[2].Role)
	require.Equal(t, "echo: How do SQLite indexes work", msgs[2].Content)

	// The completer sees the full history including the new user turn.
	require.Len(t, comp.seen, 1)
	require.Len(t, comp.seen[0], 2)

	chat, err := store.GetChat(ctx, "chat-1")
	require.NoError(t, err)
	require.Equal(t, "How do SQLite indexes work", chat.Title)

	// Later messages keep the title.
	_, err = svc.Send(ctx, "chat-1", "and composite ones?")
	require.NoError(t, err)
	chat, _ = store.GetChat(ctx, "chat-1")
	require.Equal(t, "How do SQLite indexes work", chat.Title)
}

func TestSendRejectsBlankContent(t *testing.T) {
	store := memory.New(0)
	svc := New(store, completion.Local{})

	_, err := svc.Send(context.Background(), "chat-1", "   \n")
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Missing content", apiErr.Message)

	n, _ := store.CountChats(context.Background())
	require.Zero(t, n, "blank content must not create a chat")
}

func TestSendCompleterFailure(t *testing.T) {
	store := memory.New(0)
	svc := New(store, &echoCompleter{err: errors.New("model down")})

	_, err := svc.Send(context.Background(), "chat-1", "hi")
	require.Error(t, err)

	msgs, err := store.ListMessages(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2, "user message is kept, no assistant turn")
}

func TestSendWithLocalCompleter(t *testing.T) {
	svc := New(memory.New(0), completion.Local{})

	msgs, err := svc.Send(context.Background(), "chat-1", "hello")
	require.NoError(t, err)
	require.Equal(t, completion.ReplyGreeting, msgs[len(msgs)-1].Content)
}

func TestCreateAndList(t *testing.T) {
	svc := New(memory.New(0), completion.Local{})
	ctx := context.Background()

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	require.True(t, api.ValidateChatID(a.ID))
	require.Equal(t, api.DefaultChatTitle, a.Title)

	_, err = svc.Create(ctx)
	require.NoError(t, err)

	chats, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	msgs, err := svc.Messages(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestAutoTitle(t *testing.T) {
	require.Equal(t, "short", AutoTitle("short"))

	exact := strings.Repeat("a", 40)
	require.Equal(t, exact, AutoTitle(exact))

	long := strings.Repeat("ü", 45)
	got := AutoTitle(long)
	require.Equal(t, strings.Repeat("ü", 40)+"…", got)
}
