package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"propflow/api/internal/apperr"
	"propflow/api/internal/authz"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
	"propflow/api/internal/tasks"
	"propflow/api/internal/utils"
)

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	Search(ctx context.Context, caller *authz.Caller, f query.ListingSearch) ([]models.Listing, query.Pagination, error)
	Get(ctx context.Context, caller *authz.Caller, id string) (*models.Listing, error)
	Browse(ctx context.Context, caller *authz.Caller, f query.ListingBrowse) ([]models.Listing, query.Pagination, error)
	Create(ctx context.Context, caller *authz.Caller, in ListingInput) (*models.Listing, error)
	Update(ctx context.Context, caller *authz.Caller, id string, raw map[string]any) (*models.Listing, error)
	UpdateStatus(ctx context.Context, caller *authz.Caller, id string, status models.ListingStatus) (*models.Listing, error)
	Assign(ctx context.Context, caller *authz.Caller, id, agentID string) (*models.Listing, error)
	Delete(ctx context.Context, caller *authz.Caller, id string) error
}

// ListingInput is a validated create request.
type ListingInput struct {
	Title       string
	Type        models.PropertyType
	ListingType models.ListingType
	Price       float64
	PriceUnit   string
	SizeSqm     float64
	Location    string
	City        string
	Province    string
	Description string
	Features    map[string]any
	Images      []string
	Status      models.ListingStatus
	AgentID     string
}

// listingService implements IListingService.
type listingService struct {
	listings store.ListingStore
	users    store.UserStore
	scoper   *authz.Scoper
	dispatch tasks.Dispatcher
	now      func() time.Time
}

// NewListingService creates a new ListingService.
func NewListingService(listings store.ListingStore, users store.UserStore, scoper *authz.Scoper, dispatch tasks.Dispatcher) IListingService {
	return &listingService{listings: listings, users: users, scoper: scoper, dispatch: dispatch, now: time.Now}
}

// Search runs the public search. The view counts of the returned page are
// bumped in the background; that never affects the response.
func (s *listingService) Search(ctx context.Context, caller *authz.Caller, f query.ListingSearch) ([]models.Listing, query.Pagination, error) {
	base, err := s.scoper.Scope(caller, authz.SearchListings)
	if err != nil {
		return nil, query.Pagination{}, err
	}
	spec := f.Spec().Scoped(base)

	rows, total, err := s.listings.Find(ctx, spec)
	if err != nil {
		return nil, query.Pagination{}, apperr.UpstreamErr("Failed to fetch listings", err)
	}
	if len(rows) > 0 {
		ids := make([]string, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		s.dispatch.Go(ctx, "increment_view_counts", func(ctx context.Context) error {
			return s.listings.IncrementViewCounts(ctx, ids)
		})
	}
	if err := attachAgents(ctx, s.users, rows, false); err != nil {
		return nil, query.Pagination{}, apperr.UpstreamErr("Failed to fetch listings", err)
	}
	return nonNil(rows), query.NewPagination(spec.Page, spec.Limit, total), nil
}

// Get returns one listing the caller may see and counts the view before
// returning.
func (s *listingService) Get(ctx context.Context, caller *authz.Caller, id string) (*models.Listing, error) {
	if _, err := s.scoper.Scope(caller, authz.ReadListing); err != nil {
		return nil, err
	}
	if !utils.IsID(id) {
		return nil, apperr.Validationf("Invalid listing ID")
	}
	l, err := s.listings.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("Listing not found")
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to fetch listing", err)
	}
	if err := s.scoper.CanView(caller, l); err != nil {
		return nil, err
	}

	if err := s.listings.IncrementViewCounts(ctx, []string{l.ID}); err != nil {
		slog.WarnContext(ctx, "Failed to count listing view", "listing_id", l.ID, "error", err)
	} else {
		l.ViewCount++
	}

	page := []models.Listing{*l}
	if err := attachAgents(ctx, s.users, page, true); err != nil {
		return nil, apperr.UpstreamErr("Failed to fetch listing", err)
	}
	return &page[0], nil
}

func (s *listingService) Browse(ctx context.Context, caller *authz.Caller, f query.ListingBrowse) ([]models.Listing, query.Pagination, error) {
	base, err := s.scoper.Scope(caller, authz.BrowseListings)
	if err != nil {
		return nil, query.Pagination{}, err
	}
	spec := f.Spec(caller.IsAdmin()).Scoped(base)

	rows, total, err := s.listings.Find(ctx, spec)
	if err != nil {
		return nil, query.Pagination{}, apperr.UpstreamErr("Failed to fetch admin listings", err)
	}
	if err := attachAgents(ctx, s.users, rows, false); err != nil {
		return nil, query.Pagination{}, apperr.UpstreamErr("Failed to fetch admin listings", err)
	}
	return nonNil(rows), query.NewPagination(spec.Page, spec.Limit, total), nil
}

// Create stores a new listing. Agents always own what they create; admins
// may assign it to another agent.
func (s *listingService) Create(ctx context.Context, caller *authz.Caller, in ListingInput) (*models.Listing, error) {
	if _, err := s.scoper.Scope(caller, authz.CreateListing); err != nil {
		return nil, err
	}

	agentID := caller.ID
	if caller.IsAdmin() && in.AgentID != "" && in.AgentID != caller.ID {
		if err := s.checkAssignable(ctx, in.AgentID); err != nil {
			return nil, err
		}
		agentID = in.AgentID
	}

	now := s.now().UTC()
	l := &models.Listing{
		ID:          utils.NewID(),
		Title:       strings.TrimSpace(in.Title),
		Type:        in.Type,
		ListingType: in.ListingType,
		Price:       in.Price,
		PriceUnit:   in.PriceUnit,
		SizeSqm:     in.SizeSqm,
		Location:    strings.TrimSpace(in.Location),
		City:        strings.TrimSpace(in.City),
		Province:    strings.TrimSpace(in.Province),
		Description: in.Description,
		Features:    in.Features,
		Images:      in.Images,
		Status:      in.Status,
		AgentID:     agentID,
		CreatedBy:   caller.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if l.PriceUnit == "" {
		l.PriceUnit = models.DefaultPriceUnit
	}
	if l.Status == "" {
		l.Status = models.StatusDraft
	}
	if l.Features == nil {
		l.Features = map[string]any{}
	}
	if l.Images == nil {
		l.Images = []string{}
	}

	if err := s.listings.Insert(ctx, l); err != nil {
		return nil, apperr.UpstreamErr("Failed to create listing", err)
	}
	slog.InfoContext(ctx, "Listing created", "listing_id", l.ID, "agent_id", l.AgentID, "created_by", l.CreatedBy)
	return l, nil
}

// Update applies the mutable fields present in raw; anything else is ignored.
func (s *listingService) Update(ctx context.Context, caller *authz.Caller, id string, raw map[string]any) (*models.Listing, error) {
	if !utils.IsID(id) {
		return nil, apperr.Validationf("Invalid listing ID")
	}
	fields, err := ListingUpdateFields(raw)
	if err != nil {
		return nil, err
	}
	if err := s.scoper.AuthorizeRecord(ctx, caller, authz.UpdateListing, id); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, fields, "Failed to update listing")
}

func (s *listingService) UpdateStatus(ctx context.Context, caller *authz.Caller, id string, status models.ListingStatus) (*models.Listing, error) {
	if !utils.IsID(id) {
		return nil, apperr.Validationf("Invalid listing ID")
	}
	if !models.IsListingStatus(string(status)) {
		return nil, apperr.Validationf("Invalid status")
	}
	if err := s.scoper.AuthorizeRecord(ctx, caller, authz.UpdateListingStatus, id); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, map[string]any{models.ListingFieldStatus: string(status)}, "Failed to update status")
}

// Assign moves a listing to another agent. The returned listing carries the
// new agent's summary.
func (s *listingService) Assign(ctx context.Context, caller *authz.Caller, id, agentID string) (*models.Listing, error) {
	if !utils.IsID(id) {
		return nil, apperr.Validationf("Invalid listing ID")
	}
	if !utils.IsID(agentID) {
		return nil, apperr.Validationf("Invalid agent ID")
	}
	if err := s.scoper.AuthorizeRecord(ctx, caller, authz.AssignListing, id); err != nil {
		return nil, err
	}
	if err := s.checkAssignable(ctx, agentID); err != nil {
		return nil, err
	}

	l, err := s.apply(ctx, id, map[string]any{models.ListingFieldAgentID: agentID}, "Failed to assign agent")
	if err != nil {
		return nil, err
	}
	page := []models.Listing{*l}
	if err := attachAgents(ctx, s.users, page, true); err != nil {
		slog.WarnContext(ctx, "Failed to load assigned agent", "agent_id", agentID, "error", err)
	}
	return &page[0], nil
}

func (s *listingService) Delete(ctx context.Context, caller *authz.Caller, id string) error {
	if !utils.IsID(id) {
		return apperr.Validationf("Invalid listing ID")
	}
	if err := s.scoper.AuthorizeRecord(ctx, caller, authz.DeleteListing, id); err != nil {
		return err
	}
	err := s.listings.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFoundf("Listing not found")
	}
	if err != nil {
		return apperr.UpstreamErr("Failed to delete listing", err)
	}
	slog.InfoContext(ctx, "Listing deleted", "listing_id", id, "by", caller.ID)
	return nil
}

func (s *listingService) apply(ctx context.Context, id string, fields map[string]any, failure string) (*models.Listing, error) {
	l, err := s.listings.Update(ctx, id, fields)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("Listing not found")
	}
	if err != nil {
		return nil, apperr.UpstreamErr(failure, err)
	}
	return l, nil
}

// checkAssignable verifies the target user exists and may own listings.
func (s *listingService) checkAssignable(ctx context.Context, agentID string) error {
	u, err := s.users.FindByID(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validationf("Invalid agent ID")
	}
	if err != nil {
		return apperr.UpstreamErr("Failed to verify agent", err)
	}
	if !models.IsRole(string(u.Role)) {
		return apperr.Validationf("Invalid agent ID")
	}
	return nil
}

// ListingUpdateFields keeps the allow-listed fields of raw, checking each
// value's type. Unknown fields are dropped.
func ListingUpdateFields(raw map[string]any) (map[string]any, error) {
	out := make(map[string]any)
	for _, field := range models.MutableListingFields {
		v, ok := raw[field]
		if !ok {
			continue
		}
		clean, err := listingFieldValue(field, v)
		if err != nil {
			return nil, err
		}
		out[field] = clean
	}
	if len(out) == 0 {
		return nil, apperr.Validationf("No updatable fields provided")
	}
	return out, nil
}

func listingFieldValue(field string, v any) (any, error) {
	switch field {
	case models.ListingFieldTitle:
		s, ok := v.(string)
		if n := len([]rune(strings.TrimSpace(s))); !ok || n < 5 || n > 200 {
			return nil, apperr.Validationf("title must be 5 to 200 characters")
		}
		return strings.TrimSpace(s), nil
	case models.ListingFieldType:
		return enumValue(field, v, models.IsPropertyType)
	case models.ListingFieldListingType:
		return enumValue(field, v, models.IsListingType)
	case models.ListingFieldStatus:
		return enumValue(field, v, models.IsListingStatus)
	case models.ListingFieldPrice:
		f, ok := v.(float64)
		if !ok || f < 0 {
			return nil, apperr.Validationf("price must be a number >= 0")
		}
		return f, nil
	case models.ListingFieldSize:
		f, ok := v.(float64)
		if !ok || f < 1 {
			return nil, apperr.Validationf("size_sqm must be a number >= 1")
		}
		return f, nil
	case models.ListingFieldLocation, models.ListingFieldCity, models.ListingFieldProvince, models.ListingFieldPriceUnit:
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, apperr.Validationf("%s must be a non-empty string", field)
		}
		return strings.TrimSpace(s), nil
	case models.ListingFieldDescription:
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Validationf("description must be a string")
		}
		return s, nil
	case models.ListingFieldFeatures:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, apperr.Validationf("features must be an object")
		}
		return m, nil
	case models.ListingFieldImages:
		items, ok := v.([]any)
		if !ok {
			return nil, apperr.Validationf("images must be an array of strings")
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, apperr.Validationf("images must be an array of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %s is not mutable", field)
	}
}

func enumValue(field string, v any, valid func(string) bool) (string, error) {
	s, ok := v.(string)
	if !ok || !valid(s) {
		return "", apperr.Validationf("invalid %s", field)
	}
	return s, nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
