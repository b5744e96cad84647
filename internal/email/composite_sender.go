package email

import (
	"context"
	"errors"
	"log/slog"
)

// CompositeEmailSender delivers through a primary sender and copies each
// message to its mirrors. Only the primary's error is returned; mirror
// failures are logged.
type CompositeEmailSender struct {
	primary Sender
	mirrors []Sender
}

func NewCompositeEmailSender(primary Sender, mirrors ...Sender) *CompositeEmailSender {
	cs := &CompositeEmailSender{primary: primary}
	for _, m := range mirrors {
		cs.AddSender(m)
	}
	return cs
}

// AddSender registers a mirror. Nil senders are ignored.
func (cs *CompositeEmailSender) AddSender(sender Sender) {
	if sender != nil {
		cs.mirrors = append(cs.mirrors, sender)
	}
}

func (cs *CompositeEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if cs.primary == nil {
		return errors.New("composite email sender has no primary sender")
	}
	for _, m := range cs.mirrors {
		if err := m.Send(ctx, to, subject, rawMessage); err != nil {
			slog.WarnContext(ctx, "Email mirror failed", "subject", subject, "error", err)
		}
	}
	return cs.primary.Send(ctx, to, subject, rawMessage)
}
