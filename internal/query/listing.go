package query

import (
	"net/url"
	"strings"

	"propflow/api/internal/models"
)

// Listing sort tokens. Anything else sorts as SortNewest.
const (
	SortNewest     = "newest"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortMostViewed = "most_viewed"
)

// ListingSearch is the validated public listing search.
type ListingSearch struct {
	Type          string
	ListingType   string
	City          string
	Location      string
	MinPrice      *float64
	MaxPrice      *float64
	MinSize       *float64
	MaxSize       *float64
	Sort          string
	FeaturedFirst bool
	Page          int
	Limit         int
}

// ParseListingSearch validates the public search parameters.
func ParseListingSearch(v url.Values) (ListingSearch, error) {
	var (
		f   ListingSearch
		err error
	)
	if f.Type, err = parseEnum(v, "type", models.IsPropertyType); err != nil {
		return f, err
	}
	if f.ListingType, err = parseEnum(v, "listing_type", models.IsListingType); err != nil {
		return f, err
	}
	f.City = strings.TrimSpace(v.Get("city"))
	f.Location = strings.TrimSpace(v.Get("location"))
	if f.MinPrice, err = parseNumber(v, "min_price"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parseNumber(v, "max_price"); err != nil {
		return f, err
	}
	if f.MinSize, err = parseNumber(v, "min_size"); err != nil {
		return f, err
	}
	if f.MaxSize, err = parseNumber(v, "max_size"); err != nil {
		return f, err
	}
	f.Sort = normalizeSort(v.Get("sort"))
	if f.FeaturedFirst, err = parseBool(v, "featured_first", true); err != nil {
		return f, err
	}
	if f.Page, err = parsePage(v); err != nil {
		return f, err
	}
	if f.Limit, err = parseLimit(v, DefaultPublicLimit); err != nil {
		return f, err
	}
	return f, nil
}

func normalizeSort(token string) string {
	switch t := strings.TrimSpace(token); t {
	case SortPriceAsc, SortPriceDesc, SortMostViewed:
		return t
	default:
		return SortNewest
	}
}

// Spec returns the filter predicates, sort keys and window. Visibility
// scoping is added by the caller.
func (f ListingSearch) Spec() Spec {
	var preds []Predicate
	if f.Type != "" {
		preds = append(preds, Equals{Field: models.ListingFieldType, Value: f.Type})
	}
	if f.ListingType != "" {
		preds = append(preds, Equals{Field: models.ListingFieldListingType, Value: f.ListingType})
	}
	if f.City != "" {
		preds = append(preds, SubstringCI{Fields: []string{models.ListingFieldCity}, Term: f.City})
	}
	if f.Location != "" {
		preds = append(preds, SubstringCI{
			Fields: []string{models.ListingFieldLocation, models.ListingFieldCity, models.ListingFieldProvince},
			Term:   f.Location,
		})
	}
	if p := rangeOf(models.ListingFieldPrice, f.MinPrice, f.MaxPrice); p != nil {
		preds = append(preds, p)
	}
	if p := rangeOf(models.ListingFieldSize, f.MinSize, f.MaxSize); p != nil {
		preds = append(preds, p)
	}

	var sorts []Sort
	switch f.Sort {
	case SortPriceAsc:
		sorts = append(sorts, Asc(models.ListingFieldPrice))
	case SortPriceDesc:
		sorts = append(sorts, Desc(models.ListingFieldPrice))
	case SortMostViewed:
		sorts = append(sorts, Desc(models.ListingFieldViewCount))
	default:
		sorts = append(sorts, Desc(models.ListingFieldCreatedAt))
	}
	if f.FeaturedFirst {
		sorts = append(sorts, ByRank(models.ListingFieldStatus, StatusRank))
	}

	return Spec{Predicates: preds, Sorts: sorts, Page: f.Page, Limit: f.Limit}
}

// ListingBrowse is the validated back-office listing browse.
type ListingBrowse struct {
	Search  string
	Status  string
	AgentID string
	Page    int
	Limit   int
}

func ParseListingBrowse(v url.Values) (ListingBrowse, error) {
	var (
		f   ListingBrowse
		err error
	)
	f.Search = strings.TrimSpace(v.Get("search"))
	if f.Status, err = parseEnum(v, "status", models.IsListingStatus); err != nil {
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

// Spec builds the browse query. The agent_id filter is included only when
// the caller passes withAgentFilter, which is reserved for admins.
func (f ListingBrowse) Spec(withAgentFilter bool) Spec {
	var preds []Predicate
	if withAgentFilter && f.AgentID != "" {
		preds = append(preds, Equals{Field: models.ListingFieldAgentID, Value: f.AgentID})
	}
	if f.Status != "" {
		preds = append(preds, Equals{Field: models.ListingFieldStatus, Value: f.Status})
	}
	if f.Search != "" {
		preds = append(preds, SubstringCI{
			Fields: []string{models.ListingFieldTitle, models.ListingFieldLocation, models.ListingFieldCity},
			Term:   f.Search,
		})
	}
	return Spec{
		Predicates: preds,
		Sorts:      []Sort{Desc(models.ListingFieldCreatedAt)},
		Page:       f.Page,
		Limit:      f.Limit,
	}
}

// TopListingsLimit is the size of the most-viewed table.
const TopListingsLimit = 10

// TopListings orders by view count with a fixed window.
func TopListings() Spec {
	return Spec{Sorts: []Sort{Desc(models.ListingFieldViewCount)}, Page: 1, Limit: TopListingsLimit}
}
