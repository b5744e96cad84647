package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"propflow/api/internal/models"
)

// OpenAICompleter calls the OpenAI chat completions API. A nil client
// means the feature is disabled.
type OpenAICompleter struct {
	client    *openai.Client
	model     string
	maxTokens int64
}

// NewOpenAICompleter creates the completer. Pass an empty apiKey to disable calls.
func NewOpenAICompleter(apiKey, model string, maxTokens int64) *OpenAICompleter {
	if apiKey == "" {
		return &OpenAICompleter{model: model, maxTokens: maxTokens}
	}
	c := openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return &OpenAICompleter{client: &c, model: model, maxTokens: maxTokens}
}

func (o *OpenAICompleter) Complete(ctx context.Context, req Request) (*Reply, error) {
	if o.client == nil {
		return nil, ErrNotConfigured
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	msgs = append(msgs, openai.SystemMessage(req.System))
	for _, m := range req.Messages {
		switch m.Role {
		case models.ChatRoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               shared.ChatModel(o.model),
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		return nil, classify(err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		text = FallbackReply
	}
	return &Reply{
		Text: text,
		Usage: models.ChatUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// classify marks provider rate limits with ErrBusy.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return fmt.Errorf("openai: %w", err)
}
