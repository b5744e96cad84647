package query

import (
	"net/url"

	"propflow/api/internal/models"
)

// EnquiryInbox is the validated enquiry inbox listing.
type EnquiryInbox struct {
	Status    string
	ListingID string
	AgentID   string
	Page      int
	Limit     int
}

func ParseEnquiryInbox(v url.Values) (EnquiryInbox, error) {
	var (
		f   EnquiryInbox
		err error
	)
	if f.Status, err = parseEnum(v, "status", models.IsEnquiryStatus); err != nil {
		return f, err
	}
	if f.ListingID, err = parseID(v, "listing_id"); err != nil {
		return f, err
	}
	if f.AgentID, err = parseID(v, "agent_id"); err != nil {
		return f, err
	}
	if f.Page, err = parsePage(v); err != nil {
		return f, err
	}
	if f.Limit, err = parseLimit(v, DefaultAdminLimit); err != nil {
		return f, err
	}
	return f, nil
}

// Spec builds the inbox query, newest first. As with listings the agent_id
// filter is admin-only.
func (f EnquiryInbox) Spec(withAgentFilter bool) Spec {
	var preds []Predicate
	if withAgentFilter && f.AgentID != "" {
		preds = append(preds, Equals{Field: models.EnquiryFieldAgentID, Value: f.AgentID})
	}
	if f.Status != "" {
		preds = append(preds, Equals{Field: models.EnquiryFieldStatus, Value: f.Status})
	}
	if f.ListingID != "" {
		preds = append(preds, Equals{Field: models.EnquiryFieldListingID, Value: f.ListingID})
	}
	return Spec{
		Predicates: preds,
		Sorts:      []Sort{Desc(models.EnquiryFieldCreatedAt)},
		Page:       f.Page,
		Limit:      f.Limit,
	}
}
