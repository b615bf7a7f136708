package transport

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rhuss/chatrelay/pkg/api"
)

// Logging returns middleware that emits a structured log entry for each
// relayed chat. The entry includes the request ID, model, web assist flag,
// message count, duration and whether the relay failed.
//
// Note: HTTP method and status are not visible at this level; request
// counts and latencies per route are recorded by the metrics middleware.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatStreamer) ChatStreamer {
		return ChatStreamerFunc(func(ctx context.Context, req *api.ChatRequest, w io.Writer) error {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			err := next.StreamChat(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("model", req.Model),
				slog.Bool("web_assist", req.WebAssist),
				slog.Int("messages", len(req.Messages)),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "chat relay failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "chat relay completed", attrs...)
			}

			return err
		})
	}
}
