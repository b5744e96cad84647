// Package authz decides which records a caller may read and whether they may
// perform a mutation.
package authz

import (
	"context"
	"errors"
	"fmt"

	"propflow/api/internal/apperr"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

// Operation is an action a caller asks to perform.
type Operation uint8

const (
	SearchListings Operation = iota + 1
	ReadListing
	BrowseListings
	CreateListing
	UpdateListing
	UpdateListingStatus
	AssignListing
	DeleteListing
	SubmitEnquiry
	ReadEnquiries
	UpdateEnquiryStatus
	ReadAnalytics
	ManageAgents
	RegisterUser
	Chat
	Upload
	ReadProfile
)

var opNames = map[Operation]string{
	SearchListings:      "search_listings",
	ReadListing:         "read_listing",
	BrowseListings:      "browse_listings",
	CreateListing:       "create_listing",
	UpdateListing:       "update_listing",
	UpdateListingStatus: "update_listing_status",
	AssignListing:       "assign_listing",
	DeleteListing:       "delete_listing",
	SubmitEnquiry:       "submit_enquiry",
	ReadEnquiries:       "read_enquiries",
	UpdateEnquiryStatus: "update_enquiry_status",
	ReadAnalytics:       "read_analytics",
	ManageAgents:        "manage_agents",
	RegisterUser:        "register_user",
	Chat:                "chat",
	Upload:              "upload",
	ReadProfile:         "read_profile",
}

func (o Operation) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("operation(%d)", uint8(o))
}

type resource uint8

const (
	noResource resource = iota
	listingResource
	enquiryResource
	ownedResource // analytics: both listings and enquiries by agent_id
)

type policy struct {
	anonymous bool
	adminOnly bool
	public    bool // reads limited to publicly visible listings for non-admins
	owned     resource
	mutation  bool
}

var policies = map[Operation]policy{
	SearchListings:      {anonymous: true, public: true},
	ReadListing:         {anonymous: true},
	BrowseListings:      {owned: listingResource},
	CreateListing:       {},
	UpdateListing:       {owned: listingResource, mutation: true},
	UpdateListingStatus: {owned: listingResource, mutation: true},
	AssignListing:       {adminOnly: true, owned: listingResource, mutation: true},
	DeleteListing:       {adminOnly: true, owned: listingResource, mutation: true},
	SubmitEnquiry:       {anonymous: true},
	ReadEnquiries:       {owned: enquiryResource},
	UpdateEnquiryStatus: {owned: enquiryResource, mutation: true},
	ReadAnalytics:       {owned: ownedResource},
	ManageAgents:        {adminOnly: true},
	RegisterUser:        {adminOnly: true},
	Chat:                {anonymous: true},
	Upload:              {},
	ReadProfile:         {},
}

// PublicScope restricts listings to the statuses anonymous callers may see.
func PublicScope() []query.Predicate {
	return []query.Predicate{query.OneOf{
		Field:  models.ListingFieldStatus,
		Values: query.Values(publicStatusValues()),
	}}
}

func publicStatusValues() []string {
	out := make([]string, len(models.PublicStatuses))
	for i, s := range models.PublicStatuses {
		out[i] = string(s)
	}
	return out
}

// Scoper narrows queries to a caller's scope and authorizes mutations. It
// holds the only handle able to read record ownership regardless of scope.
type Scoper struct {
	listingOwners store.OwnerLookup
	enquiryOwners store.OwnerLookup
}

func NewScoper(listingOwners, enquiryOwners store.OwnerLookup) *Scoper {
	return &Scoper{listingOwners: listingOwners, enquiryOwners: enquiryOwners}
}

// Scope returns the base predicates for op, or an error if the caller may not
// perform it at all. Admins get no base predicates except on the public
// search, which is scoped to public statuses for everyone.
func (s *Scoper) Scope(caller *Caller, op Operation) ([]query.Predicate, error) {
	p, ok := policies[op]
	if !ok {
		return nil, fmt.Errorf("no policy for %s", op)
	}
	if caller == nil {
		if !p.anonymous {
			return nil, apperr.ErrUnauthenticated
		}
		if p.public {
			return PublicScope(), nil
		}
		return nil, nil
	}
	if !caller.IsActive {
		return nil, apperr.ErrDeactivated
	}
	switch caller.Role {
	case models.RoleAdmin:
		if p.public {
			return PublicScope(), nil
		}
		return nil, nil
	case models.RoleAgent:
	default:
		return nil, apperr.ErrInsufficientRole
	}
	if p.adminOnly {
		return nil, apperr.ErrInsufficientRole
	}
	if p.public {
		return PublicScope(), nil
	}
	if p.owned != noResource {
		return []query.Predicate{query.Equals{Field: models.ListingFieldAgentID, Value: caller.ID}}, nil
	}
	return nil, nil
}

// AuthorizeRecord checks that caller may apply op to the record id. For
// agents this reads the record's current owner before the mutation; the
// check is not atomic with the write that follows.
func (s *Scoper) AuthorizeRecord(ctx context.Context, caller *Caller, op Operation, id string) error {
	if _, err := s.Scope(caller, op); err != nil {
		return err
	}
	if caller.IsAdmin() {
		return nil
	}
	p := policies[op]
	if !p.mutation {
		return fmt.Errorf("%s is not a record mutation", op)
	}

	var (
		lookup    store.OwnerLookup
		missing   string
		notOwners string
	)
	switch p.owned {
	case listingResource:
		lookup, missing, notOwners = s.listingOwners, "Listing not found", "You can only modify your own listings"
	case enquiryResource:
		lookup, missing, notOwners = s.enquiryOwners, "Enquiry not found", "You can only modify your own enquiries"
	default:
		return fmt.Errorf("%s has no owned resource", op)
	}

	owner, err := lookup.OwnerOf(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFoundf("%s", missing)
		}
		return apperr.UpstreamErr("Failed to verify ownership", err)
	}
	if owner != caller.ID {
		return apperr.Forbiddenf("%s", notOwners)
	}
	return nil
}

// CanView reports whether caller may see a single listing. Hidden listings
// are reported as not found.
func (s *Scoper) CanView(caller *Caller, l *models.Listing) error {
	if l.Status.IsPublic() {
		return nil
	}
	if caller != nil && caller.IsActive {
		if caller.IsAdmin() || (caller.IsAgent() && l.AgentID == caller.ID) {
			return nil
		}
	}
	return apperr.NotFoundf("Listing not found")
}
