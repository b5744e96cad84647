package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"propflow/api/internal/apperr"
	"propflow/api/internal/authz"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/store"
)

const (
	// TrailingWindow is how far back the monthly enquiry series reaches.
	TrailingWindow = 180 * 24 * time.Hour
	// RecentEnquiries is the size of the dashboard's latest enquiries list.
	RecentEnquiries = 5

	monthKeyLayout   = "2006-01"
	monthLabelLayout = "Jan 06"
)

// IAnalyticsService builds the back-office dashboard.
type IAnalyticsService interface {
	Dashboard(ctx context.Context, caller *authz.Caller) (*models.Dashboard, error)
	TopListings(ctx context.Context, caller *authz.Caller) ([]models.TopListing, error)
}

type analyticsService struct {
	listings  store.ListingStore
	enquiries store.EnquiryStore
	users     store.UserStore
	scoper    *authz.Scoper
	loc       *time.Location
	now       func() time.Time
}

// NewAnalyticsService creates the aggregator. Months are bucketed in loc.
func NewAnalyticsService(listings store.ListingStore, enquiries store.EnquiryStore, users store.UserStore, scoper *authz.Scoper, loc *time.Location) IAnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &analyticsService{listings: listings, enquiries: enquiries, users: users, scoper: scoper, loc: loc, now: time.Now}
}

// Dashboard runs its six queries concurrently. Any failure fails the whole
// dashboard.
func (s *analyticsService) Dashboard(ctx context.Context, caller *authz.Caller) (*models.Dashboard, error) {
	base, err := s.scoper.Scope(caller, authz.ReadAnalytics)
	if err != nil {
		return nil, err
	}
	now := s.now()
	since := now.Add(-TrailingWindow)

	var (
		listingStatuses map[string]int64
		enquiryStatuses map[string]int64
		activeAgents    *int64
		recent          []models.Enquiry
		byType          map[string]int64
		created         []time.Time
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		listingStatuses, err = s.listings.GroupCount(gctx, base, models.ListingFieldStatus)
		return wrapQuery("listing statuses", err)
	})
	g.Go(func() (err error) {
		enquiryStatuses, err = s.enquiries.GroupCount(gctx, base, models.EnquiryFieldStatus)
		return wrapQuery("enquiry statuses", err)
	})
	if caller.IsAdmin() {
		g.Go(func() error {
			n, err := s.users.Count(gctx, []query.Predicate{
				query.Equals{Field: models.UserFieldRole, Value: string(models.RoleAgent)},
				query.Equals{Field: models.UserFieldIsActive, Value: true},
			})
			if err != nil {
				return wrapQuery("active agents", err)
			}
			activeAgents = &n
			return nil
		})
	}
	g.Go(func() error {
		rows, _, err := s.enquiries.Find(gctx, query.Spec{
			Predicates: base,
			Sorts:      []query.Sort{query.Desc(models.EnquiryFieldCreatedAt)},
			Page:       1,
			Limit:      RecentEnquiries,
		})
		if err != nil {
			return wrapQuery("recent enquiries", err)
		}
		if err := attachEnquiryRelations(gctx, s.listings, s.users, rows); err != nil {
			return wrapQuery("recent enquiry relations", err)
		}
		recent = rows
		return nil
	})
	g.Go(func() (err error) {
		active := append(append([]query.Predicate{}, base...), query.Equals{Field: models.ListingFieldStatus, Value: string(models.StatusActive)})
		byType, err = s.listings.GroupCount(gctx, active, models.ListingFieldType)
		return wrapQuery("listings by type", err)
	})
	g.Go(func() (err error) {
		created, err = s.enquiries.CreatedSince(gctx, base, since)
		return wrapQuery("monthly enquiries", err)
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.UpstreamErr("Failed to fetch analytics", err)
	}

	labels, series := foldMonths(created, since, now, s.loc)
	if byType == nil {
		byType = map[string]int64{}
	}
	return &models.Dashboard{
		KPIs: models.KPIs{
			TotalListings:    sum(listingStatuses),
			ActiveListings:   listingStatuses[string(models.StatusActive)],
			FeaturedListings: listingStatuses[string(models.StatusFeatured)],
			TotalEnquiries:   sum(enquiryStatuses),
			UnreadEnquiries:  enquiryStatuses[string(models.EnquiryUnread)],
			ActiveAgents:     activeAgents,
		},
		RecentEnquiries:  nonNil(recent),
		ListingsByType:   byType,
		MonthlyEnquiries: labels,
		MonthlySeries:    series,
	}, nil
}

// TopListings returns the most viewed listings within the caller's scope.
func (s *analyticsService) TopListings(ctx context.Context, caller *authz.Caller) ([]models.TopListing, error) {
	base, err := s.scoper.Scope(caller, authz.ReadAnalytics)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.listings.Find(ctx, query.TopListings().Scoped(base))
	if err != nil {
		return nil, apperr.UpstreamErr("Failed to fetch top listings", err)
	}
	out := make([]models.TopListing, len(rows))
	for i, l := range rows {
		out[i] = models.TopListing{
			ID:           l.ID,
			Title:        l.Title,
			City:         l.City,
			ViewCount:    l.ViewCount,
			EnquiryCount: l.EnquiryCount,
			Status:       l.Status,
		}
	}
	return out, nil
}

// foldMonths buckets timestamps by calendar month in loc. The map is keyed by
// the short label; the series covers every month from since to now in
// chronological order, including empty ones.
func foldMonths(ts []time.Time, since, now time.Time, loc *time.Location) (map[string]int64, []models.MonthBucket) {
	counts := make(map[string]int64)
	labels := make(map[string]int64)
	for _, t := range ts {
		local := t.In(loc)
		counts[local.Format(monthKeyLayout)]++
		labels[local.Format(monthLabelLayout)]++
	}

	var series []models.MonthBucket
	start := since.In(loc)
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
	end := now.In(loc)
	for !cur.After(end) {
		key := cur.Format(monthKeyLayout)
		series = append(series, models.MonthBucket{Month: key, Label: cur.Format(monthLabelLayout), Count: counts[key]})
		cur = cur.AddDate(0, 1, 0)
	}
	return labels, series
}

func sum(m map[string]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}

func wrapQuery(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
