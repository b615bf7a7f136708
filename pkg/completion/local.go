package completion

import (
	"context"
	"strings"

	"github.com/rhuss/chatrelay/pkg/api"
)

// Replies produced by Local.
const (
	ReplyEmpty    = "I'm here. Ask me anything!"
	ReplyQuestion = "Great question. Here's a concise, step-by-step way to think about it:\n\n" +
		"1) Clarify the goal\n2) Identify constraints\n3) Propose 2–3 options\n4) Choose and outline next steps.\n\n" +
		"(Connect an API key to enable real model responses.)"
	ReplyGreeting = "Hello! 👋 How can I help you today?"
	ReplySQL      = "SQLite tip: use `INTEGER PRIMARY KEY` for an auto-incrementing id, and create indexes on frequently filtered columns for better performance."
	ReplyPrisma   = "Prisma tip: prefer `db push` during development for quick schema iteration; use `migrate dev` when you want a migration history."
)

// Local answers from fixed rules keyed on the last user message. It never
// fails.
type Local struct{}

var _ Completer = Local{}

// Complete implements Completer.
func (Local) Complete(_ context.Context, msgs []api.ChatMessage) (string, error) {
	text := LocalReply(api.LastUserMessage(msgs))
	record("local", text, nil)
	return text, nil
}

// LocalReply applies the rules to a single user message. Rules are checked
// in order: empty, trailing question mark, greeting, sql, prisma, echo.
// Keyword checks are case-insensitive substring matches.
func LocalReply(message string) string {
	text := strings.TrimSpace(message)
	if text == "" {
		return ReplyEmpty
	}
	lower := strings.ToLower(text)

	switch {
	case strings.HasSuffix(text, "?"):
		return ReplyQuestion
	case strings.Contains(lower, "hello") || strings.Contains(lower, "hi"):
		return ReplyGreeting
	case strings.Contains(lower, "sql"):
		return ReplySQL
	case strings.Contains(lower, "prisma"):
		return ReplyPrisma
	}

	return "You said: “" + text + "”.\n\n" +
		"If you want a deeper answer, add context (goal, constraints, example data). " +
		"You can also add OPENAI_API_KEY in .env to enable real LLM replies."
}
