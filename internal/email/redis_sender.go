package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockEmailKeyFormat is mockemail:<recipient>:<kind>.
const MockEmailKeyFormat = "mockemail:%s:%s"

// MockEmailTTL is how long a captured message stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmail is the JSON stored for each captured message.
type MockEmail struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Kind    Kind   `json:"kind"`
	SentAt  string `json:"sent_at"`
}

// RedisSender stores messages in Redis so tests can read them back through
// the service router.
type RedisSender struct {
	client redis.Cmdable
	from   string
}

func NewRedisSender(client redis.Cmdable, from string) *RedisSender {
	return &RedisSender{client: client, from: from}
}

// Send stores one message under the first recipient and its kind.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	primaryTo := ""
	if len(to) > 0 {
		primaryTo = strings.ToLower(to[0])
	}
	kind := KindOf(rawMessage)

	data, err := json.Marshal(MockEmail{
		To:      strings.Join(to, ", "),
		From:    s.from,
		Subject: subject,
		Body:    string(rawMessage),
		Kind:    kind,
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := fmt.Sprintf(MockEmailKeyFormat, primaryTo, kind)
	if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}
	slog.Debug("Mock email stored", "key", key, "subject", subject)
	return nil
}
