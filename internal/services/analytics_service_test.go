package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propflow/api/internal/apperr"
	"propflow/api/internal/authz"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
)

type analyticsFixture struct {
	listings  *MockListingStore
	enquiries *MockEnquiryStore
	users     *MockUserStore
	svc       *analyticsService
}

func newAnalyticsFixture() *analyticsFixture {
	f := &analyticsFixture{
		listings:  new(MockListingStore),
		enquiries: new(MockEnquiryStore),
		users:     new(MockUserStore),
	}
	scoper := authz.NewScoper(new(MockOwnerLookup), new(MockOwnerLookup))
	f.svc = NewAnalyticsService(f.listings, f.enquiries, f.users, scoper, time.UTC).(*analyticsService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *analyticsFixture) expectDashboard(created []time.Time) {
	f.listings.On("GroupCount", mock.Anything, mock.Anything, models.ListingFieldStatus).
		Return(map[string]int64{"active": 4, "featured": 2, "draft": 3, "let": 1}, nil)
	f.listings.On("GroupCount", mock.Anything, mock.Anything, models.ListingFieldType).
		Return(map[string]int64{"office": 3, "retail": 1}, nil)
	f.enquiries.On("GroupCount", mock.Anything, mock.Anything, models.EnquiryFieldStatus).
		Return(map[string]int64{"unread": 5, "read": 2, "resolved": 1}, nil)
	f.enquiries.On("Find", mock.Anything, mock.Anything).
		Return([]models.Enquiry{{ID: enquiry1, ListingID: listing1, AgentID: agentAID}}, int64(8), nil)
	f.listings.On("Find", mock.Anything, byID([]string{listing1})).
		Return([]models.Listing{{ID: listing1, Title: "Sandton tower"}}, int64(1), nil)
	f.users.On("Find", mock.Anything, byID([]string{agentAID})).
		Return([]models.User{{ID: agentAID, FullName: "Anele"}}, nil)
	f.enquiries.On("CreatedSince", mock.Anything, mock.Anything, fixedNow.Add(-TrailingWindow)).Return(created, nil)
}

func TestDashboard_Admin(t *testing.T) {
	f := newAnalyticsFixture()
	f.expectDashboard([]time.Time{
		time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 14, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
	})
	f.users.On("Count", mock.Anything, []query.Predicate{
		query.Equals{Field: models.UserFieldRole, Value: "agent"},
		query.Equals{Field: models.UserFieldIsActive, Value: true},
	}).Return(int64(6), nil).Once()

	d, err := f.svc.Dashboard(context.Background(), callerAdmin)
	require.NoError(t, err)

	assert.Equal(t, models.KPIs{
		TotalListings:    10,
		ActiveListings:   4,
		FeaturedListings: 2,
		TotalEnquiries:   8,
		UnreadEnquiries:  5,
		ActiveAgents:     ptr(int64(6)),
	}, d.KPIs)
	assert.Equal(t, map[string]int64{"office": 3, "retail": 1}, d.ListingsByType)
	assert.Equal(t, map[string]int64{"Jun 26": 2, "Mar 26": 1}, d.MonthlyEnquiries)
	require.Len(t, d.RecentEnquiries, 1)
	assert.Equal(t, "Sandton tower", d.RecentEnquiries[0].Listing.Title)
	f.users.AssertExpectations(t)
}

func TestDashboard_AgentIsScopedAndHasNoAgentCount(t *testing.T) {
	f := newAnalyticsFixture()
	own := []query.Predicate{query.Equals{Field: models.ListingFieldAgentID, Value: agentAID}}
	f.expectDashboard(nil)

	d, err := f.svc.Dashboard(context.Background(), callerA)
	require.NoError(t, err)
	assert.Nil(t, d.KPIs.ActiveAgents)
	assert.Empty(t, d.MonthlyEnquiries)
	f.users.AssertNotCalled(t, "Count", mock.Anything, mock.Anything)

	f.listings.AssertCalled(t, "GroupCount", mock.Anything, own, models.ListingFieldStatus)
	f.enquiries.AssertCalled(t, "GroupCount", mock.Anything, own, models.EnquiryFieldStatus)
	f.listings.AssertCalled(t, "GroupCount", mock.Anything,
		append(own, query.Equals{Field: models.ListingFieldStatus, Value: "active"}), models.ListingFieldType)
	f.enquiries.AssertCalled(t, "CreatedSince", mock.Anything, own, mock.Anything)
}

func TestDashboard_OneFailureFailsAll(t *testing.T) {
	f := newAnalyticsFixture()
	f.listings.On("GroupCount", mock.Anything, mock.Anything, mock.Anything).Return(map[string]int64{}, nil)
	f.enquiries.On("GroupCount", mock.Anything, mock.Anything, mock.Anything).Return(map[string]int64{}, nil)
	f.enquiries.On("Find", mock.Anything, mock.Anything).Return([]models.Enquiry{}, int64(0), nil)
	f.enquiries.On("CreatedSince", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("statement timeout"))

	_, err := f.svc.Dashboard(context.Background(), callerA)
	assert.Equal(t, apperr.Upstream, apperr.KindOf(err))
	assert.Equal(t, "Failed to fetch analytics", apperr.MessageOf(err, ""))
}

func TestDashboard_RequiresBackOffice(t *testing.T) {
	f := newAnalyticsFixture()

	_, err := f.svc.Dashboard(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = f.svc.TopListings(context.Background(), &authz.Caller{ID: agentAID, Role: models.RoleAgent})
	assert.ErrorIs(t, err, apperr.ErrDeactivated)
}

func TestFoldMonths_ZeroFilledAndChronological(t *testing.T) {
	since := fixedNow.Add(-TrailingWindow)
	labels, series := foldMonths([]time.Time{
		time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}, since, fixedNow, time.UTC)

	assert.Equal(t, map[string]int64{"Feb 26": 2, "Jun 26": 1}, labels)
	require.Len(t, series, 7)
	assert.Equal(t, models.MonthBucket{Month: "2025-12", Label: "Dec 25", Count: 0}, series[0])
	assert.Equal(t, models.MonthBucket{Month: "2026-02", Label: "Feb 26", Count: 2}, series[2])
	assert.Equal(t, models.MonthBucket{Month: "2026-06", Label: "Jun 26", Count: 1}, series[6])
}

func TestFoldMonths_UsesConfiguredZone(t *testing.T) {
	sast := time.FixedZone("SAST", 2*60*60)
	lateJanuaryUTC := time.Date(2026, 1, 31, 23, 30, 0, 0, time.UTC)

	labels, _ := foldMonths([]time.Time{lateJanuaryUTC}, fixedNow.Add(-TrailingWindow), fixedNow, sast)
	assert.Equal(t, map[string]int64{"Feb 26": 1}, labels)

	labels, _ = foldMonths([]time.Time{lateJanuaryUTC}, fixedNow.Add(-TrailingWindow), fixedNow, time.UTC)
	assert.Equal(t, map[string]int64{"Jan 26": 1}, labels)
}

func TestTopListings_ScopedPerRole(t *testing.T) {
	f := newAnalyticsFixture()
	f.listings.On("Find", mock.Anything, query.TopListings().Scoped(nil)).
		Return([]models.Listing{{ID: listing1, Title: "Rosebank office", City: "Johannesburg", ViewCount: 900, EnquiryCount: 14, Status: models.StatusActive}}, int64(1), nil).Once()
	f.listings.On("Find", mock.Anything, query.TopListings().Scoped([]query.Predicate{
		query.Equals{Field: models.ListingFieldAgentID, Value: agentAID},
	})).Return([]models.Listing{}, int64(0), nil).Once()

	rows, err := f.svc.TopListings(context.Background(), callerAdmin)
	require.NoError(t, err)
	assert.Equal(t, []models.TopListing{{ID: listing1, Title: "Rosebank office", City: "Johannesburg", ViewCount: 900, EnquiryCount: 14, Status: models.StatusActive}}, rows)

	rows, err = f.svc.TopListings(context.Background(), callerA)
	require.NoError(t, err)
	assert.Empty(t, rows)
	f.listings.AssertExpectations(t)
}
