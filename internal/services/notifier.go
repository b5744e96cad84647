package services

import (
	"context"

	"propflow/api/internal/tasks"
)

// Notifier queues outgoing email. *tasks.Queue implements it.
type Notifier interface {
	NotifyEnquiry(ctx context.Context, p tasks.EnquiryNoticePayload) error
	SendPasswordReset(ctx context.Context, p tasks.PasswordResetPayload) error
	SendWelcome(ctx context.Context, to, fullName string) error
}
