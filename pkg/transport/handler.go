package transport

import (
	"context"
	"io"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/augment"
)

// ChatStreamer relays a chat request upstream and writes the reply to w as
// it is produced. An error returned before anything was written means the
// stream never started; the adapter then answers with an error status.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req *api.ChatRequest, w io.Writer) error
}

// ChatStreamerFunc is an adapter that allows using an ordinary function
// as a ChatStreamer.
type ChatStreamerFunc func(ctx context.Context, req *api.ChatRequest, w io.Writer) error

// StreamChat calls f(ctx, req, w).
func (f ChatStreamerFunc) StreamChat(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
	return f(ctx, req, w)
}

// ChatService handles persisted conversation threads.
type ChatService interface {
	// Messages returns the thread for id, creating it when unknown.
	Messages(ctx context.Context, id string) ([]*api.StoredMessage, error)

	// Send appends a user message, generates the reply and returns the
	// updated thread.
	Send(ctx context.Context, id, content string) ([]*api.StoredMessage, error)

	// Create starts a new chat.
	Create(ctx context.Context) (*api.Chat, error)

	// List returns the most recently updated chats.
	List(ctx context.Context, limit int) ([]*api.Chat, error)

	// Count returns the number of stored chats.
	Count(ctx context.Context) (int, error)
}

// SearchService answers knowledge lookups for the search route.
type SearchService interface {
	Summaries(ctx context.Context, query string, limit int) ([]augment.Result, error)
}

// HealthChecker verifies a backing resource is functional.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ResponseWriter is the plain-text stream a ChatStreamer writes to.
//
// Headers are committed on the first Write. Flush pushes buffered bytes to
// the client and returns an error once the client has disconnected.
type ResponseWriter interface {
	io.Writer

	Flush() error

	// Started reports whether any byte of the stream has been written.
	Started() bool
}
