package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/chatrelay/pkg/api"
)

// Recovery returns middleware that catches panics in the relay and converts
// them to server errors. The server continues to accept new requests after
// a panic is recovered.
func Recovery() Middleware {
	return func(next ChatStreamer) ChatStreamer {
		return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) (retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic in chat relay",
						"request_id", RequestIDFromContext(ctx),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.StreamChat(ctx, req, w)
		})
	}
}
