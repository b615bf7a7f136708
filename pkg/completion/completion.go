package completion

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/observability"
)

// ErrEmptyReply is returned when a backend answers without any text.
var ErrEmptyReply = errors.New("completion: empty reply")

// Completer produces a single reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, msgs []api.ChatMessage) (string, error)
}

// Fallback tries Primary and falls back to Secondary when it fails or
// returns no text.
type Fallback struct {
	Primary   Completer
	Secondary Completer
}

var _ Completer = (*Fallback)(nil)

// Complete implements Completer.
func (f *Fallback) Complete(ctx context.Context, msgs []api.ChatMessage) (string, error) {
	text, err := f.Primary.Complete(ctx, msgs)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if err == nil {
		err = ErrEmptyReply
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	slog.Warn("primary completer failed, using fallback", "error", err)
	return f.Secondary.Complete(ctx, msgs)
}

// record counts a completion attempt.
func record(completer string, text string, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case text == "":
		outcome = "empty"
	}
	observability.CompletionsTotal.WithLabelValues(completer, outcome).Inc()
}
