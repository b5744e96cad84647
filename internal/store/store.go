// Package store declares the persistence contracts shared by the postgres
// and mongo backends.
package store

import (
	"context"
	"errors"
	"time"

	"propflow/api/internal/models"
	"propflow/api/internal/query"
)

// ErrNotFound is returned when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// ListingStore persists listings. Ownership lookups are not part of this
// interface; they go through the authorization scoper only.
type ListingStore interface {
	Find(ctx context.Context, spec query.Spec) ([]models.Listing, int64, error)
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	Insert(ctx context.Context, l *models.Listing) error
	// Update applies fields (already allow-listed) and returns the updated row.
	Update(ctx context.Context, id string, fields map[string]any) (*models.Listing, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, preds []query.Predicate) (int64, error)
	IncrementViewCounts(ctx context.Context, ids []string) error
	IncrementEnquiryCount(ctx context.Context, id string) error
	// GroupCount counts matching listings per distinct value of field.
	GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error)
}

// EnquiryStore persists enquiries. Enquiries are never deleted.
type EnquiryStore interface {
	Find(ctx context.Context, spec query.Spec) ([]models.Enquiry, int64, error)
	Insert(ctx context.Context, e *models.Enquiry) error
	UpdateStatus(ctx context.Context, id string, status models.EnquiryStatus) (*models.Enquiry, error)
	Count(ctx context.Context, preds []query.Predicate) (int64, error)
	// CreatedSince returns creation times of matching enquiries at or after since.
	CreatedSince(ctx context.Context, preds []query.Predicate, since time.Time) ([]time.Time, error)
	GroupCount(ctx context.Context, preds []query.Predicate, field string) (map[string]int64, error)
}

// UserStore persists agent and admin profiles.
type UserStore interface {
	Find(ctx context.Context, spec query.Spec) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context, preds []query.Predicate) (int64, error)
}

// CredentialStore holds password hashes for the local auth provider.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Credentials, error)
	Save(ctx context.Context, c *models.Credentials) error
}

// ChatLogStore records chat exchanges.
type ChatLogStore interface {
	Insert(ctx context.Context, l *models.ChatLog) error
}

// OwnerLookup resolves the agent owning a record. Backends implement it on
// their listing and enquiry stores; only the scoper receives it.
type OwnerLookup interface {
	OwnerOf(ctx context.Context, id string) (string, error)
}

// Stores groups one backend's implementations.
type Stores struct {
	Listings      ListingStore
	Enquiries     EnquiryStore
	Users         UserStore
	Credentials   CredentialStore
	ChatLogs      ChatLogStore
	ListingOwners OwnerLookup
	EnquiryOwners OwnerLookup
	Close         func()
}
