package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"propflow/api/internal/apperr"
	"propflow/api/internal/auth"
	"propflow/api/internal/authz"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
	"propflow/api/internal/tasks"
	"propflow/api/internal/utils"
)

// IAgentService manages back-office accounts.
type IAgentService interface {
	Roster(ctx context.Context, caller *authz.Caller) ([]models.RosterEntry, error)
	SetActive(ctx context.Context, caller *authz.Caller, id string, active bool) (*models.User, error)
	Register(ctx context.Context, caller *authz.Caller, in RegisterInput) (*models.User, error)
}

// RegisterInput is a validated account creation request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     models.Role
	Phone    string
}

type agentService struct {
	users     store.UserStore
	listings  store.ListingStore
	enquiries store.EnquiryStore
	provider  auth.Provider
	scoper    *authz.Scoper
	dispatch  tasks.Dispatcher
	notifier  Notifier
	now       func() time.Time
}

func NewAgentService(users store.UserStore, listings store.ListingStore, enquiries store.EnquiryStore, provider auth.Provider, scoper *authz.Scoper, dispatch tasks.Dispatcher, notifier Notifier) IAgentService {
	return &agentService{
		users:     users,
		listings:  listings,
		enquiries: enquiries,
		provider:  provider,
		scoper:    scoper,
		dispatch:  dispatch,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Roster lists every agent and admin, newest first, with the number of
// listings and enquiries attributed to each.
func (s *agentService) Roster(ctx context.Context, caller *authz.Caller) ([]models.RosterEntry, error) {
	if _, err := s.scoper.Scope(caller, authz.ManageAgents); err != nil {
		return nil, err
	}

	var (
		users         []models.User
		listingCounts map[string]int64
		enquiryCounts map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.Find(gctx, query.Spec{
			Predicates: []query.Predicate{query.OneOf{Field: models.UserFieldRole, Values: query.Values(models.Roles)}},
			Sorts:      []query.Sort{query.Desc(models.UserFieldCreatedAt)},
		})
		return err
	})
	g.Go(func() error {
		var err error
		listingCounts, err = s.listings.GroupCount(gctx, nil, models.ListingFieldAgentID)
		return err
	})
	g.Go(func() error {
		var err error
		enquiryCounts, err = s.enquiries.GroupCount(gctx, nil, models.EnquiryFieldAgentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.UpstreamErr("Failed to fetch agents", err)
	}

	out := make([]models.RosterEntry, len(users))
	for i, u := range users {
		out[i] = models.RosterEntry{
			User:         u,
			ListingCount: listingCounts[u.ID],
			EnquiryCount: enquiryCounts[u.ID],
		}
	}
	return out, nil
}

func (s *agentService) SetActive(ctx context.Context, caller *authz.Caller, id string, active bool) (*models.User, error) {
	if _, err := s.scoper.Scope(caller, authz.ManageAgents); err != nil {
		return nil, err
	}
	if !utils.IsID(id) {
		return nil, apperr.Validationf("Invalid agent ID")
	}
	if id == caller.ID && !active {
		return nil, apperr.Validationf("You cannot deactivate your own account")
	}
	u, err := s.users.SetActive(ctx, id, active)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("User not found")
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to update agent status", err)
	}
	slog.InfoContext(ctx, "Agent status changed", "user_id", id, "is_active", active, "by", caller.ID)
	return u, nil
}

// Register creates a profile and its credentials, then queues a welcome email.
func (s *agentService) Register(ctx context.Context, caller *authz.Caller, in RegisterInput) (*models.User, error) {
	if _, err := s.scoper.Scope(caller, authz.RegisterUser); err != nil {
		return nil, err
	}
	if !models.IsRole(string(in.Role)) {
		return nil, apperr.Validationf("role must be admin or agent")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.Validationf("Password must be at least %d characters", auth.MinPasswordLength)
	}

	now := s.now().UTC()
	u := &models.User{
		ID:        utils.NewID(),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FullName:  strings.TrimSpace(in.FullName),
		Role:      in.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		u.Phone = &phone
	}

	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Validationf("A user with this email already exists")
		}
		return nil, apperr.UpstreamErr("Failed to create user", err)
	}
	if err := s.provider.CreateCredentials(ctx, u.ID, u.Email, in.Password); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Validationf("A user with this email already exists")
		}
		return nil, apperr.UpstreamErr("Failed to create user", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "role", u.Role, "by", caller.ID)

	s.dispatch.Go(ctx, "welcome_email", func(ctx context.Context) error {
		return s.notifier.SendWelcome(ctx, u.Email, u.FullName)
	})
	return u, nil
}
