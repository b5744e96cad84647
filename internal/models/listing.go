package models

import (
	"slices"
	"time"
)

// PropertyType classifies the physical property.
type PropertyType string

const (
	PropertyOffice       PropertyType = "office"
	PropertyIndustrial   PropertyType = "industrial"
	PropertyRetail       PropertyType = "retail"
	PropertyWarehouse    PropertyType = "warehouse"
	PropertyMixedUse     PropertyType = "mixed_use"
	PropertyAgricultural PropertyType = "agricultural"
)

// ListingType is the commercial offer of a listing.
type ListingType string

const (
	ListingToLet   ListingType = "to_let"
	ListingForSale ListingType = "for_sale"
)

// ListingStatus is an advisory label; any status may follow any other.
type ListingStatus string

const (
	StatusDraft    ListingStatus = "draft"
	StatusActive   ListingStatus = "active"
	StatusFeatured ListingStatus = "featured"
	StatusPending  ListingStatus = "pending"
	StatusLet      ListingStatus = "let"
	StatusSold     ListingStatus = "sold"
	StatusArchived ListingStatus = "archived"
)

var (
	PropertyTypes   = []PropertyType{PropertyOffice, PropertyIndustrial, PropertyRetail, PropertyWarehouse, PropertyMixedUse, PropertyAgricultural}
	ListingTypes    = []ListingType{ListingToLet, ListingForSale}
	ListingStatuses = []ListingStatus{StatusDraft, StatusActive, StatusFeatured, StatusPending, StatusLet, StatusSold, StatusArchived}

	// PublicStatuses are the statuses visible to anonymous callers.
	PublicStatuses = []ListingStatus{StatusActive, StatusFeatured}
)

const DefaultPriceUnit = "per_month"

func IsPropertyType(v string) bool  { return slices.Contains(PropertyTypes, PropertyType(v)) }
func IsListingType(v string) bool   { return slices.Contains(ListingTypes, ListingType(v)) }
func IsListingStatus(v string) bool { return slices.Contains(ListingStatuses, ListingStatus(v)) }

// IsPublic reports whether a listing in status s may be shown to anyone.
func (s ListingStatus) IsPublic() bool { return slices.Contains(PublicStatuses, s) }

// Listing field names shared by the query layer and both stores.
const (
	ListingFieldID           = "id"
	ListingFieldTitle        = "title"
	ListingFieldType         = "type"
	ListingFieldListingType  = "listing_type"
	ListingFieldPrice        = "price"
	ListingFieldPriceUnit    = "price_unit"
	ListingFieldSize         = "size_sqm"
	ListingFieldLocation     = "location"
	ListingFieldCity         = "city"
	ListingFieldProvince     = "province"
	ListingFieldDescription  = "description"
	ListingFieldFeatures     = "features"
	ListingFieldImages       = "images"
	ListingFieldStatus       = "status"
	ListingFieldViewCount    = "view_count"
	ListingFieldEnquiryCount = "enquiry_count"
	ListingFieldAgentID      = "agent_id"
	ListingFieldCreatedBy    = "created_by"
	ListingFieldCreatedAt    = "created_at"
	ListingFieldUpdatedAt    = "updated_at"
)

// MutableListingFields is the allow-list applied by a listing update.
var MutableListingFields = []string{
	ListingFieldTitle, ListingFieldType, ListingFieldListingType, ListingFieldPrice, ListingFieldPriceUnit,
	ListingFieldSize, ListingFieldLocation, ListingFieldCity, ListingFieldProvince, ListingFieldDescription,
	ListingFieldFeatures, ListingFieldImages, ListingFieldStatus,
}

// Listing is a commercial property offered to let or for sale.
type Listing struct {
	ID           string         `db:"id" bson:"_id" json:"id"`
	Title        string         `db:"title" bson:"title" json:"title"`
	Type         PropertyType   `db:"type" bson:"type" json:"type"`
	ListingType  ListingType    `db:"listing_type" bson:"listing_type" json:"listing_type"`
	Price        float64        `db:"price" bson:"price" json:"price"`
	PriceUnit    string         `db:"price_unit" bson:"price_unit" json:"price_unit"`
	SizeSqm      float64        `db:"size_sqm" bson:"size_sqm" json:"size_sqm"`
	Location     string         `db:"location" bson:"location" json:"location"`
	City         string         `db:"city" bson:"city" json:"city"`
	Province     string         `db:"province" bson:"province" json:"province"`
	Description  string         `db:"description" bson:"description" json:"description"`
	Features     map[string]any `db:"features" bson:"features" json:"features"`
	Images       []string       `db:"images" bson:"images" json:"images"`
	Status       ListingStatus  `db:"status" bson:"status" json:"status"`
	ViewCount    int64          `db:"view_count" bson:"view_count" json:"view_count"`
	EnquiryCount int64          `db:"enquiry_count" bson:"enquiry_count" json:"enquiry_count"`
	AgentID      string         `db:"agent_id" bson:"agent_id" json:"agent_id"`
	CreatedBy    string         `db:"created_by" bson:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" bson:"updated_at" json:"updated_at"`

	Agent *AgentSummary `db:"-" bson:"-" json:"agent,omitempty"`
}

// Summary is the compact form embedded in enquiries.
func (l *Listing) Summary() *ListingSummary {
	return &ListingSummary{ID: l.ID, Title: l.Title, City: l.City, Type: l.Type}
}

// ListingSummary is a listing reference embedded in other records.
type ListingSummary struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	City  string       `json:"city"`
	Type  PropertyType `json:"type"`
}
