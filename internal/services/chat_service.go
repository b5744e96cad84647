package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"propflow/api/internal/apperr"
	"propflow/api/internal/authz"
	"propflow/api/internal/chat"
	"propflow/api/internal/models"
	"propflow/api/internal/store"
	"propflow/api/internal/tasks"
	"propflow/api/internal/utils"
)

// IChatService proxies the property advisor chat.
type IChatService interface {
	Reply(ctx context.Context, caller *authz.Caller, in ChatInput) (*chat.Reply, error)
}

// ChatInput is one chat turn: the full history and an optional listing id.
type ChatInput struct {
	Messages       []models.ChatMessage
	ListingContext string
}

type chatService struct {
	completer chat.Completer
	listings  store.ListingStore
	logs      store.ChatLogStore
	scoper    *authz.Scoper
	dispatch  tasks.Dispatcher
	appName   string
	now       func() time.Time
}

func NewChatService(completer chat.Completer, listings store.ListingStore, logs store.ChatLogStore, scoper *authz.Scoper, dispatch tasks.Dispatcher, appName string) IChatService {
	return &chatService{
		completer: completer,
		listings:  listings,
		logs:      logs,
		scoper:    scoper,
		dispatch:  dispatch,
		appName:   appName,
		now:       time.Now,
	}
}

func (s *chatService) Reply(ctx context.Context, caller *authz.Caller, in ChatInput) (*chat.Reply, error) {
	if _, err := s.scoper.Scope(caller, authz.Chat); err != nil {
		return nil, err
	}
	if err := validateChat(in); err != nil {
		return nil, err
	}

	var listing *models.Listing
	if in.ListingContext != "" {
		l, err := s.listings.FindByID(ctx, in.ListingContext)
		switch {
		case err == nil && s.scoper.CanView(caller, l) == nil:
			listing = l
		case err != nil && !errors.Is(err, store.ErrNotFound):
			slog.WarnContext(ctx, "Failed to load chat listing context", "listing_id", in.ListingContext, "error", err)
		}
	}

	reply, err := s.completer.Complete(ctx, chat.Request{
		System:   chat.SystemPrompt(s.appName, listing),
		Messages: in.Messages,
	})
	if errors.Is(err, chat.ErrBusy) {
		return nil, apperr.Wrap(apperr.RateLimited, "AI service is busy. Please try again in a moment.", err)
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Chat service unavailable. Please try again.", err)
	}

	entry := &models.ChatLog{
		ID:              utils.NewID(),
		MessageCount:    len(in.Messages),
		LastUserMessage: chat.Preview(in.Messages),
		TokensUsed:      reply.Usage.OutputTokens,
		CreatedAt:       s.now().UTC(),
	}
	if caller != nil {
		entry.UserID = &caller.ID
	}
	if in.ListingContext != "" {
		entry.ListingID = &in.ListingContext
	}
	s.dispatch.Go(ctx, "chat_log", func(ctx context.Context) error {
		return s.logs.Insert(ctx, entry)
	})
	return reply, nil
}

func validateChat(in ChatInput) error {
	if len(in.Messages) == 0 || len(in.Messages) > chat.MaxMessages {
		return apperr.Validationf("messages must contain 1 to %d items", chat.MaxMessages)
	}
	for _, m := range in.Messages {
		if m.Role != models.ChatRoleUser && m.Role != models.ChatRoleAssistant {
			return apperr.Validationf("message role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" || utf8.RuneCountInString(m.Content) > chat.MaxContentLength {
			return apperr.Validationf("message content must be 1 to %d characters", chat.MaxContentLength)
		}
	}
	if in.ListingContext != "" && !utils.IsID(in.ListingContext) {
		return apperr.Validationf("listing_context must be a UUID")
	}
	return nil
}
