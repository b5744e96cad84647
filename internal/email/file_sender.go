package email

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileEmailSender appends one JSON record per message to a local file, in
// the same shape the Redis sender stores.
type FileEmailSender struct {
	mu   sync.Mutex
	path string
	from string
	now  func() time.Time
}

func NewFileEmailSender(path, from string) (*FileEmailSender, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("email log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create email log directory: %w", err)
	}
	return &FileEmailSender{path: path, from: from, now: time.Now}, nil
}

func (s *FileEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	line, err := json.Marshal(MockEmail{
		To:      strings.Join(to, ", "),
		From:    s.from,
		Subject: subject,
		Body:    string(rawMessage),
		Kind:    KindOf(rawMessage),
		SentAt:  s.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode email record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return f.Close()
}
