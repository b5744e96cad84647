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

// IEnquiryService defines the interface for enquiry intake and the inbox.
type IEnquiryService interface {
	Submit(ctx context.Context, caller *authz.Caller, in EnquiryInput) (*models.Enquiry, error)
	Inbox(ctx context.Context, caller *authz.Caller, f query.EnquiryInbox) ([]models.Enquiry, query.Pagination, error)
	UpdateStatus(ctx context.Context, caller *authz.Caller, id string, status models.EnquiryStatus) (*models.Enquiry, error)
}

// EnquiryInput is a validated enquiry submission.
type EnquiryInput struct {
	ListingID        string
	Name             string
	Email            string
	Phone            string
	Message          string
	ViewingRequested bool
	ViewingDate      *time.Time
}

// ErrListingUnavailable covers both a missing listing and one that is not
// publicly visible.
var ErrListingUnavailable = apperr.NotFoundf("Listing not found or not available")

type enquiryService struct {
	enquiries store.EnquiryStore
	listings  store.ListingStore
	users     store.UserStore
	scoper    *authz.Scoper
	dispatch  tasks.Dispatcher
	notifier  Notifier
	now       func() time.Time
}

// NewEnquiryService creates a new EnquiryService.
func NewEnquiryService(enquiries store.EnquiryStore, listings store.ListingStore, users store.UserStore, scoper *authz.Scoper, dispatch tasks.Dispatcher, notifier Notifier) IEnquiryService {
	return &enquiryService{
		enquiries: enquiries,
		listings:  listings,
		users:     users,
		scoper:    scoper,
		dispatch:  dispatch,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Submit records an enquiry against a publicly visible listing. The owning
// agent at this moment is stored with the enquiry. The listing's counter
// and the agent's email are best effort.
func (s *enquiryService) Submit(ctx context.Context, caller *authz.Caller, in EnquiryInput) (*models.Enquiry, error) {
	if _, err := s.scoper.Scope(caller, authz.SubmitEnquiry); err != nil {
		return nil, err
	}
	if !utils.IsID(in.ListingID) {
		return nil, apperr.Validationf("Invalid listing ID")
	}

	listing, err := s.listings.FindByID(ctx, in.ListingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrListingUnavailable
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to submit enquiry", err)
	}
	if !listing.Status.IsPublic() {
		return nil, ErrListingUnavailable
	}

	now := s.now().UTC()
	e := &models.Enquiry{
		ID:               utils.NewID(),
		ListingID:        listing.ID,
		AgentID:          listing.AgentID,
		Name:             strings.TrimSpace(in.Name),
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		Message:          strings.TrimSpace(in.Message),
		ViewingRequested: in.ViewingRequested,
		ViewingDate:      in.ViewingDate,
		Status:           models.EnquiryUnread,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if caller != nil {
		e.UserID = &caller.ID
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		e.Phone = &phone
	}

	if err := s.enquiries.Insert(ctx, e); err != nil {
		return nil, apperr.UpstreamErr("Failed to submit enquiry", err)
	}
	slog.InfoContext(ctx, "Enquiry submitted", "enquiry_id", e.ID, "listing_id", e.ListingID, "agent_id", e.AgentID)

	s.dispatch.Go(ctx, "increment_enquiry_count", func(ctx context.Context) error {
		return s.listings.IncrementEnquiryCount(ctx, listing.ID)
	})
	s.dispatch.Go(ctx, "notify_agent", func(ctx context.Context) error {
		return s.notifyAgent(ctx, e, listing)
	})

	e.Listing = listing.Summary()
	return e, nil
}

func (s *enquiryService) notifyAgent(ctx context.Context, e *models.Enquiry, listing *models.Listing) error {
	agent, err := s.users.FindByID(ctx, e.AgentID)
	if err != nil {
		return fmt.Errorf("failed to load agent %s: %w", e.AgentID, err)
	}
	p := tasks.EnquiryNoticePayload{
		EnquiryID:        e.ID,
		AgentEmail:       agent.Email,
		AgentName:        agent.FullName,
		ListingTitle:     listing.Title,
		Name:             e.Name,
		Email:            e.Email,
		Message:          e.Message,
		ViewingRequested: e.ViewingRequested,
	}
	if e.Phone != nil {
		p.Phone = *e.Phone
	}
	if e.ViewingDate != nil {
		p.ViewingDate = e.ViewingDate.Format(time.DateOnly)
	}
	return s.notifier.NotifyEnquiry(ctx, p)
}

func (s *enquiryService) Inbox(ctx context.Context, caller *authz.Caller, f query.EnquiryInbox) ([]models.Enquiry, query.Pagination, error) {
	base, err := s.scoper.Scope(caller, authz.ReadEnquiries)
	if err != nil {
		return nil, query.Pagination{}, err
	}
	spec := f.Spec(caller.IsAdmin()).Scoped(base)

	rows, total, err := s.enquiries.Find(ctx, spec)
	if err != nil {
		return nil, query.Pagination{}, apperr.UpstreamErr("Failed to fetch enquiries", err)
	}
	if err := attachEnquiryRelations(ctx, s.listings, s.users, rows); err != nil {
		return nil, query.Pagination{}, apperr.UpstreamErr("Failed to fetch enquiries", err)
	}
	return nonNil(rows), query.NewPagination(spec.Page, spec.Limit, total), nil
}

// UpdateStatus sets any status; there is no transition order.
func (s *enquiryService) UpdateStatus(ctx context.Context, caller *authz.Caller, id string, status models.EnquiryStatus) (*models.Enquiry, error) {
	if !utils.IsID(id) {
		return nil, apperr.Validationf("Invalid enquiry ID")
	}
	if !models.IsEnquiryStatus(string(status)) {
		return nil, apperr.Validationf("Invalid status")
	}
	if err := s.scoper.AuthorizeRecord(ctx, caller, authz.UpdateEnquiryStatus, id); err != nil {
		return nil, err
	}
	e, err := s.enquiries.UpdateStatus(ctx, id, status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFoundf("Enquiry not found")
	}
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to update enquiry", err)
	}
	return e, nil
}
