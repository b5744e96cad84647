// Package chat proxies the property advisor conversation to an LLM provider.
package chat

import (
	"context"
	"errors"

	"propflow/api/internal/models"
)

const (
	MaxMessages       = 50
	MaxContentLength  = 4000
	LogMessagePreview = 500
)

var (
	// ErrBusy means the provider rate-limited the request.
	ErrBusy = errors.New("chat provider is busy")
	// ErrNotConfigured means no provider credentials were given.
	ErrNotConfigured = errors.New("chat provider is not configured")
)

// FallbackReply is returned when the provider answers with no text.
const FallbackReply = "I apologize, I could not generate a response. Please try again."

// Request is one completion call: a system prompt and the history so far.
type Request struct {
	System   string
	Messages []models.ChatMessage
}

// Reply is the assistant's answer and its token accounting.
type Reply struct {
	Text  string
	Usage models.ChatUsage
}

// Completer produces one assistant reply. Implementations do not retry.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
}
