package relay

import (
	"context"

	"github.com/rhuss/chatrelay/pkg/api"
	"github.com/rhuss/chatrelay/pkg/augment"
	"github.com/rhuss/chatrelay/pkg/debug"
)

// BaseSystemPrompt is prepended to every relayed conversation.
const BaseSystemPrompt = "You are a helpful assistant. Be concise, factual, and avoid fabrications. " +
	"If the answer is unknown, say so and suggest how to verify. " +
	"Prefer bullet points; show short code when asked."

// ContextMessage wraps looked-up reference text as a system message.
func ContextMessage(snippets string) api.ChatMessage {
	return api.ChatMessage{
		Role: api.RoleSystem,
		Content: "Additional web context (Wikipedia snippets; may be incomplete):\n" + snippets +
			"\nUse this context only if relevant, and cite titles in [brackets].",
	}
}

// BuildMessages assembles the upstream conversation: the base instruction,
// an optional context message, then the caller's non-system messages in
// their original order. The lookup runs only when webAssist is set and is
// keyed on the most recent user message.
func BuildMessages(ctx context.Context, msgs []api.ChatMessage, webAssist bool, aug augment.Augmenter) []api.ChatMessage {
	out := make([]api.ChatMessage, 0, len(msgs)+2)
	out = append(out, api.ChatMessage{Role: api.RoleSystem, Content: BaseSystemPrompt})

	if webAssist && aug != nil {
		if query := api.LastUserMessage(msgs); query != "" {
			if snippets := aug.Lookup(ctx, query); snippets != "" {
				out = append(out, ContextMessage(snippets))
			} else {
				debug.Log("relay", "no context found, continuing without")
			}
		}
	}

	for _, m := range msgs {
		if m.Role == api.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
