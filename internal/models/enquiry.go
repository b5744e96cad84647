package models

import (
	"slices"
	"time"
)

// EnquiryStatus is an unordered label; any status may be set from any other.
type EnquiryStatus string

const (
	EnquiryUnread     EnquiryStatus = "unread"
	EnquiryRead       EnquiryStatus = "read"
	EnquiryInProgress EnquiryStatus = "in_progress"
	EnquiryResolved   EnquiryStatus = "resolved"
	EnquiryArchived   EnquiryStatus = "archived"
)

var EnquiryStatuses = []EnquiryStatus{EnquiryUnread, EnquiryRead, EnquiryInProgress, EnquiryResolved, EnquiryArchived}

func IsEnquiryStatus(v string) bool { return slices.Contains(EnquiryStatuses, EnquiryStatus(v)) }

const (
	EnquiryFieldID        = "id"
	EnquiryFieldListingID = "listing_id"
	EnquiryFieldAgentID   = "agent_id"
	EnquiryFieldStatus    = "status"
	EnquiryFieldCreatedAt = "created_at"
)

// Enquiry is a prospective tenant or buyer's contact submission for one listing.
type Enquiry struct {
	ID               string        `db:"id" bson:"_id" json:"id"`
	ListingID        string        `db:"listing_id" bson:"listing_id" json:"listing_id"`
	AgentID          string        `db:"agent_id" bson:"agent_id" json:"agent_id"` // copied from the listing at insert
	UserID           *string       `db:"user_id" bson:"user_id,omitempty" json:"user_id"`
	Name             string        `db:"name" bson:"name" json:"name"`
	Email            string        `db:"email" bson:"email" json:"email"`
	Phone            *string       `db:"phone" bson:"phone,omitempty" json:"phone"`
	Message          string        `db:"message" bson:"message" json:"message"`
	ViewingRequested bool          `db:"viewing_requested" bson:"viewing_requested" json:"viewing_requested"`
	ViewingDate      *time.Time    `db:"viewing_date" bson:"viewing_date,omitempty" json:"viewing_date"`
	Status           EnquiryStatus `db:"status" bson:"status" json:"status"`
	CreatedAt        time.Time     `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" bson:"updated_at" json:"updated_at"`

	Listing *ListingSummary `db:"-" bson:"-" json:"listing,omitempty"`
	Agent   *AgentSummary   `db:"-" bson:"-" json:"agent,omitempty"`
}
