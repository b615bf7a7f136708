package completion

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rhuss/chatrelay/pkg/api"
)

const (
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultOpenAITemperature = 0.3
)

// OpenAIConfig configures the hosted completer.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxRetries  int
}

// OpenAI completes conversations with the Chat Completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float64
}

var _ Completer = (*OpenAI)(nil)

// NewOpenAI creates a hosted completer. An API key is required.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion: openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAI{
		client:      &client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, msgs []api.ChatMessage) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    toOpenAIMessages(msgs),
		Temperature: openai.Float(o.temperature),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		record("openai", "", err)
		return "", fmt.Errorf("openai chat: %w", err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	record("openai", text, nil)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func toOpenAIMessages(msgs []api.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case api.RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case api.RoleUser:
			params = append(params, openai.UserMessage(m.Content))
		case api.RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		}
	}
	return params
}
