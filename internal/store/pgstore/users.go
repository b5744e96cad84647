package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

var userColumns = []string{
	"id", "email", "full_name", "phone", "avatar_url", "role", "is_active", "last_login", "created_at", "updated_at",
}

// UserStore is the postgres users table.
type UserStore struct {
	pool *pgxpool.Pool
}

var _ store.UserStore = (*UserStore)(nil)

func (s *UserStore) Find(ctx context.Context, spec query.Spec) ([]models.User, error) {
	sql, args, err := query.SelectSQL(usersTable, columnList(userColumns), spec)
	if err != nil {
		return nil, fmt.Errorf("failed to render users query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+identifiers(userColumns)+" FROM users WHERE id = $1", id)
	return collectOne[models.User](rows, err)
}

func (s *UserStore) Insert(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx, insertSQL(usersTable, userColumns),
		u.ID, u.Email, u.FullName, u.Phone, u.AvatarURL, u.Role, u.IsActive, u.LastLogin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user %s: %w", u.Email, translate(err))
	}
	return nil
}

func (s *UserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	sql, args := updateSQL(usersTable, id, map[string]any{models.UserFieldIsActive: active}, userColumns)
	rows, err := s.pool.Query(ctx, sql, args...)
	return collectOne[models.User](rows, err)
}

func (s *UserStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", at, id)
	if err != nil {
		return fmt.Errorf("failed to record login of %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *UserStore) Count(ctx context.Context, preds []query.Predicate) (int64, error) {
	return count(ctx, s.pool, usersTable, preds)
}

// CredentialStore is the postgres credentials table.
type CredentialStore struct {
	pool *pgxpool.Pool
}

var _ store.CredentialStore = (*CredentialStore)(nil)

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.Credentials, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT user_id, email, password_hash FROM credentials WHERE lower(email) = lower($1)", email)
	return collectOne[models.Credentials](rows, err)
}

// Save inserts or replaces the credentials of c.UserID.
func (s *CredentialStore) Save(ctx context.Context, c *models.Credentials) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO credentials (user_id, email, password_hash) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash`,
		c.UserID, c.Email, c.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", translate(err))
	}
	return nil
}

// ChatLogStore is the postgres chat_logs table.
type ChatLogStore struct {
	pool *pgxpool.Pool
}

var _ store.ChatLogStore = (*ChatLogStore)(nil)

func (s *ChatLogStore) Insert(ctx context.Context, l *models.ChatLog) error {
	_, err := s.pool.Exec(ctx, insertSQL(chatLogsTable, []string{
		"id", "user_id", "listing_id", "message_count", "last_user_message", "tokens_used", "created_at",
	}), l.ID, l.UserID, l.ListingID, l.MessageCount, l.LastUserMessage, l.TokensUsed, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}
	return nil
}
