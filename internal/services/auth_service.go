package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"propflow/api/internal/apperr"
	"propflow/api/internal/auth"
	"propflow/api/internal/authz"
	"propflow/api/internal/models"
	"propflow/api/internal/store"
	"propflow/api/internal/tasks"
)

// Principal is a verified request identity with its stored profile.
type Principal struct {
	User     *models.User
	Caller   *authz.Caller
	Identity *auth.Identity
	Token    string
}

// IAuthService covers sign-in, sessions and password reset.
type IAuthService interface {
	Login(ctx context.Context, email, password string) (*models.User, *auth.Session, error)
	Logout(ctx context.Context, p *Principal, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	Me(ctx context.Context, caller *authz.Caller) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	// ResolveCaller verifies an access token and loads its profile. A
	// deactivated account still resolves; callers decide how to treat it.
	ResolveCaller(ctx context.Context, accessToken string) (*Principal, error)
}

var (
	errBadLogin        = apperr.New(apperr.Unauthorized, "Invalid email or password")
	errProfileNotFound = apperr.New(apperr.Unauthorized, "User profile not found")
)

type authService struct {
	provider auth.Provider
	users    store.UserStore
	scoper   *authz.Scoper
	dispatch tasks.Dispatcher
	notifier Notifier
	now      func() time.Time
}

func NewAuthService(provider auth.Provider, users store.UserStore, scoper *authz.Scoper, dispatch tasks.Dispatcher, notifier Notifier) IAuthService {
	return &authService{provider: provider, users: users, scoper: scoper, dispatch: dispatch, notifier: notifier, now: time.Now}
}

func (s *authService) Login(ctx context.Context, email, password string) (*models.User, *auth.Session, error) {
	userID, err := s.provider.Authenticate(ctx, email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return nil, nil, errBadLogin
	}
	if err != nil {
		return nil, nil, apperr.UpstreamErr("Login failed", err)
	}

	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, errProfileNotFound
	}
	if err != nil {
		return nil, nil, apperr.UpstreamErr("Login failed", err)
	}
	if !u.IsActive {
		return nil, nil, apperr.ErrDeactivated
	}

	session, err := s.provider.IssueSession(ctx, u.ID, u.Role)
	if err != nil {
		return nil, nil, apperr.UpstreamErr("Login failed", err)
	}

	at := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, at); err != nil {
		slog.WarnContext(ctx, "Failed to record last login", "user_id", u.ID, "error", err)
	} else {
		u.LastLogin = &at
	}
	slog.InfoContext(ctx, "User logged in", "user_id", u.ID, "role", u.Role)
	return u, session, nil
}

// Logout revokes the presented tokens. Failures are logged; the client is
// logged out either way.
func (s *authService) Logout(ctx context.Context, p *Principal, refreshToken string) error {
	var id *auth.Identity
	if p != nil {
		id = p.Identity
	}
	if err := s.provider.SignOut(ctx, id, refreshToken); err != nil {
		slog.WarnContext(ctx, "Sign out failed", "error", err)
		return err
	}
	return nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperr.Validationf("Refresh token required")
	}
	userID, err := s.provider.ConsumeRefresh(ctx, refreshToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil, apperr.New(apperr.Unauthorized, "Invalid refresh token")
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Token refresh failed", err)
	}

	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.Unauthorized, "Invalid refresh token")
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Token refresh failed", err)
	}
	if !u.IsActive {
		return nil, apperr.ErrDeactivated
	}

	session, err := s.provider.IssueSession(ctx, u.ID, u.Role)
	if err != nil {
		return nil, apperr.UpstreamErr("Token refresh failed", err)
	}
	return session, nil
}

func (s *authService) Me(ctx context.Context, caller *authz.Caller) (*models.User, error) {
	if _, err := s.scoper.Scope(caller, authz.ReadProfile); err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, caller.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errProfileNotFound
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to fetch profile", err)
	}
	return u, nil
}

// ForgotPassword queues a reset email when the account exists. The work
// runs in the background so neither the answer nor its latency reveals
// whether the account exists.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	s.dispatch.Go(ctx, "password_reset", func(ctx context.Context) error {
		grant, err := s.provider.CreateResetToken(ctx, email)
		if errors.Is(err, auth.ErrUnknownAccount) {
			slog.InfoContext(ctx, "Password reset requested for unknown email")
			return nil
		}
		if err != nil {
			return err
		}
		return s.notifier.SendPasswordReset(ctx, tasks.PasswordResetPayload{Email: grant.Email, Token: grant.Token})
	})
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.Validationf("Reset token required")
	}
	err := s.provider.ResetPassword(ctx, token, newPassword)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrWeakPassword):
		return apperr.Validationf("Password must be at least %d characters", auth.MinPasswordLength)
	case errors.Is(err, auth.ErrInvalidToken):
		return apperr.Validationf("Invalid or expired reset token")
	default:
		return apperr.UpstreamErr("Password reset failed", err)
	}
}

func (s *authService) ResolveCaller(ctx context.Context, accessToken string) (*Principal, error) {
	if accessToken == "" {
		return nil, apperr.ErrUnauthenticated
	}
	id, err := s.provider.Verify(ctx, accessToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		return nil, apperr.ErrInvalidToken
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Authentication error", err)
	}

	u, err := s.users.FindByID(ctx, id.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errProfileNotFound
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Authentication error", err)
	}
	return &Principal{User: u, Caller: authz.CallerFromUser(u), Identity: id, Token: accessToken}, nil
}
