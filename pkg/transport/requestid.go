package transport

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/rhuss/chatrelay/pkg/api"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming request context already carries a request ID
// (set by the HTTP adapter from the X-Request-ID header), that value is
// used. Otherwise, a new unique ID is generated.
func RequestID() Middleware {
	return func(next ChatStreamer) ChatStreamer {
		return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.StreamChat(ctx, req, w)
		})
	}
}

// NewRequestID creates a new unique request ID.
func NewRequestID() string {
	return uuid.NewString()
}
