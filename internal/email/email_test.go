package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propflow/api/internal/config"
)

type recordingSender struct {
	calls int
	err   error
}

func (r *recordingSender) Send(context.Context, []string, string, []byte) error {
	r.calls++
	return r.err
}

func TestCompose_KindRoundTrip(t *testing.T) {
	raw := Compose("noreply@propflow.test", []string{"agent@propflow.test"}, "New enquiry", KindEnquiryNotice, "Hello")

	assert.Equal(t, KindEnquiryNotice, KindOf(raw))
	assert.Contains(t, string(raw), "Subject: New enquiry\r\n")
	assert.Contains(t, string(raw), "\r\n\r\nHello\r\n")
	assert.Equal(t, KindUnknown, KindOf([]byte("not a message")))
}

func TestCompositeEmailSender_PrimaryDecides(t *testing.T) {
	primary := &recordingSender{}
	mirror := &recordingSender{err: errors.New("disk full")}
	cs := NewCompositeEmailSender(primary, mirror, nil)

	require.NoError(t, cs.Send(context.Background(), []string{"a@b.co"}, "s", []byte("m")))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, mirror.calls)

	primary.err = errors.New("smtp down")
	assert.ErrorContains(t, cs.Send(context.Background(), []string{"a@b.co"}, "s", []byte("m")), "smtp down")
	assert.Equal(t, 2, mirror.calls)

	assert.Error(t, NewCompositeEmailSender(nil).Send(context.Background(), nil, "", nil))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "emails.log")
	s, err := NewFileEmailSender(path, "noreply@propflow.test")
	require.NoError(t, err)

	raw := Compose("noreply@propflow.test", []string{"agent@propflow.test"}, "Reset", KindPasswordReset, "body")
	require.NoError(t, s.Send(context.Background(), []string{"agent@propflow.test"}, "Reset", raw))
	require.NoError(t, s.Send(context.Background(), []string{"other@propflow.test"}, "Welcome", []byte("plain")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first MockEmail
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "agent@propflow.test", first.To)
	assert.Equal(t, "Reset", first.Subject)
	assert.Equal(t, KindPasswordReset, first.Kind)
	assert.Contains(t, first.Body, "body")

	_, err = NewFileEmailSender("  ", "")
	assert.Error(t, err)
}

func TestNewSMTPSender_NoHostLogsInstead(t *testing.T) {
	sender := NewSMTPSender(&config.Config{SmtpFromAddress: "noreply@propflow.test"})
	require.IsType(t, &LoggingSender{}, sender)
	assert.NoError(t, sender.Send(context.Background(), []string{"a@b.co"}, "Hi", []byte("body")))
}
