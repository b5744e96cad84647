package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"propflow/api/internal/models"
	"propflow/api/internal/store"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for a malformed, expired or revoked token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnknownAccount is returned when a reset is requested for an unknown email.
	ErrUnknownAccount = errors.New("unknown account")
)

// Session is the token pair handed to a client after sign-in or refresh.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Identity is the verified content of an access token.
type Identity struct {
	UserID    string
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// ResetGrant names the account a password reset token was issued for.
type ResetGrant struct {
	Token  string
	UserID string
	Email  string
}

// Provider authenticates back-office users and manages their tokens.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (userID string, err error)
	IssueSession(ctx context.Context, userID string, role models.Role) (*Session, error)
	Verify(ctx context.Context, accessToken string) (*Identity, error)
	// ConsumeRefresh redeems a refresh token once and returns its user.
	ConsumeRefresh(ctx context.Context, refreshToken string) (userID string, err error)
	SignOut(ctx context.Context, id *Identity, refreshToken string) error
	CreateCredentials(ctx context.Context, userID, email, password string) error
	CreateResetToken(ctx context.Context, email string) (*ResetGrant, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// KV is the expiring key-value surface the local provider keeps tokens in.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// GetDel returns and removes key; ok is false when it did not exist.
	GetDel(ctx context.Context, key string) (value string, ok bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
}

// RedisKV is a KV on a redis client.
type RedisKV struct {
	rdb redis.Cmdable
}

func NewRedisKV(rdb redis.Cmdable) *RedisKV {
	return &RedisKV{rdb: rdb}
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) GetDel(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

const (
	refreshKeyFormat = "auth:refresh:%s"
	revokedKeyFormat = "auth:revoked:%s"
	resetKeyFormat   = "auth:reset:%s"
)

// LocalConfig holds the secrets and lifetimes of the local provider.
type LocalConfig struct {
	JwtSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// LocalProvider signs HS256 access tokens, checks bcrypt credentials and
// keeps refresh, reset and revocation state in a KV.
type LocalProvider struct {
	cfg         LocalConfig
	credentials store.CredentialStore
	kv          KV
}

var _ Provider = (*LocalProvider)(nil)

func NewLocalProvider(cfg LocalConfig, credentials store.CredentialStore, kv KV) *LocalProvider {
	return &LocalProvider{cfg: cfg, credentials: credentials, kv: kv}
}

func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (string, error) {
	creds, err := p.credentials.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	if !CheckPasswordHash(password, creds.PasswordHash) {
		return "", ErrInvalidCredentials
	}
	return creds.UserID, nil
}

func (p *LocalProvider) IssueSession(ctx context.Context, userID string, role models.Role) (*Session, error) {
	access, claims, err := GenerateJWT(userID, role, p.cfg.JwtSecret, p.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh := rand.Text()
	if err := p.kv.Set(ctx, fmt.Sprintf(refreshKeyFormat, refresh), userID, p.cfg.RefreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(p.cfg.AccessTTL.Seconds()),
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

func (p *LocalProvider) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	claims, err := ValidateJWT(accessToken, p.cfg.JwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	revoked, err := p.kv.Exists(ctx, fmt.Sprintf(revokedKeyFormat, claims.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:    claims.UserID,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (p *LocalProvider) ConsumeRefresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", ErrInvalidToken
	}
	userID, ok, err := p.kv.GetDel(ctx, fmt.Sprintf(refreshKeyFormat, refreshToken))
	if err != nil {
		return "", fmt.Errorf("failed to redeem refresh token: %w", err)
	}
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// SignOut revokes the access token until it would have expired and drops the
// refresh token if one is given.
func (p *LocalProvider) SignOut(ctx context.Context, id *Identity, refreshToken string) error {
	if id != nil {
		if ttl := time.Until(id.ExpiresAt); ttl > 0 {
			if err := p.kv.Set(ctx, fmt.Sprintf(revokedKeyFormat, id.TokenID), id.UserID, ttl); err != nil {
				return fmt.Errorf("failed to revoke access token: %w", err)
			}
		}
	}
	if refreshToken != "" {
		if err := p.kv.Del(ctx, fmt.Sprintf(refreshKeyFormat, refreshToken)); err != nil {
			return fmt.Errorf("failed to drop refresh token: %w", err)
		}
	}
	return nil
}

func (p *LocalProvider) CreateCredentials(ctx context.Context, userID, email, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return p.credentials.Save(ctx, &models.Credentials{UserID: userID, Email: normalizeEmail(email), PasswordHash: hash})
}

type resetPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (p *LocalProvider) CreateResetToken(ctx context.Context, email string) (*ResetGrant, error) {
	creds, err := p.credentials.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	payload, err := json.Marshal(resetPayload{UserID: creds.UserID, Email: creds.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reset grant: %w", err)
	}
	token := rand.Text()
	if err := p.kv.Set(ctx, fmt.Sprintf(resetKeyFormat, token), string(payload), p.cfg.ResetTTL); err != nil {
		return nil, fmt.Errorf("failed to store reset token: %w", err)
	}
	return &ResetGrant{Token: token, UserID: creds.UserID, Email: creds.Email}, nil
}

func (p *LocalProvider) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	raw, ok, err := p.kv.GetDel(ctx, fmt.Sprintf(resetKeyFormat, token))
	if err != nil {
		return fmt.Errorf("failed to redeem reset token: %w", err)
	}
	if !ok {
		return ErrInvalidToken
	}
	var grant resetPayload
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return fmt.Errorf("failed to decode reset grant: %w", err)
	}
	return p.CreateCredentials(ctx, grant.UserID, grant.Email, newPassword)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
