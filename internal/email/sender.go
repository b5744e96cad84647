package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"propflow/api/internal/config"
)

// Sender defines the interface for sending emails.
// The rawMessage parameter should contain the full email message, including headers and body, properly formatted.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// Kind labels a message for mock sinks and logs.
type Kind string

const (
	KindPasswordReset Kind = "password_reset"
	KindEnquiryNotice Kind = "enquiry_notice"
	KindWelcome       Kind = "welcome"
	KindUnknown       Kind = "unknown"
)

// KindHeader carries the Kind inside a composed message.
const KindHeader = "X-Propflow-Kind"

// Compose builds a plain-text RFC 5322 message.
func Compose(from string, to []string, subject string, kind Kind, body string) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "%s: %s\r\n", KindHeader, kind)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	if !strings.HasSuffix(body, "\r\n") {
		sb.WriteString("\r\n")
	}
	return []byte(sb.String())
}

// KindOf reads the Kind header of a composed message.
func KindOf(rawMessage []byte) Kind {
	msg, err := mail.ReadMessage(bytes.NewReader(rawMessage))
	if err != nil {
		return KindUnknown
	}
	if k := msg.Header.Get(KindHeader); k != "" {
		return Kind(k)
	}
	return KindUnknown
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	from string
	auth smtp.Auth
	addr string
}

// NewSMTPSender returns an SMTP sender, or a LoggingSender when no SMTP host
// is configured.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		slog.Warn("SMTP host not configured, using logging email sender")
		return NewLoggingSender(cfg.SmtpFromAddress)
	}
	return &SMTPSender{
		from: cfg.SmtpFromAddress,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send sends an email using SMTP. net/smtp does not take a context, so
// cancellation is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, s.from, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	slog.Info("Email sent via SMTP", "to", to, "subject", subject)
	return nil
}

// LoggingSender logs email details instead of sending them.
type LoggingSender struct {
	from string
}

// NewLoggingSender returns a sender that only logs.
func NewLoggingSender(from string) *LoggingSender {
	return &LoggingSender{from: from}
}

func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	slog.Info("Email logged",
		"to", to,
		"from", s.from,
		"subject", subject,
		"kind", KindOf(rawMessage),
		"message", string(rawMessage),
	)
	return nil
}
