package completion

import (
	"context"
	"fmt"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/upstream/ollama"
)

// Ollama completes conversations with a non-streaming /api/chat request.
type Ollama struct {
	Client      *ollama.Client
	Model       string
	Temperature float64
}

var _ Completer = (*Ollama)(nil)

// Complete implements Completer.
func (o *Ollama) Complete(ctx context.Context, msgs []api.ChatMessage) (string, error) {
	temp := o.Temperature
	wire := make([]ollama.Message, len(msgs))
	for i, m := range msgs {
		wire[i] = ollama.Message{Role: string(m.Role), Content: m.Content}
	}

	resp, err := o.Client.Complete(ctx, "", &ollama.ChatRequest{
		Model:    o.Model,
		Messages: wire,
		Options:  &ollama.Options{Temperature: &temp},
	})
	if err != nil {
		record("ollama", "", err)
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	text := resp.Content()
	record("ollama", text, nil)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}
