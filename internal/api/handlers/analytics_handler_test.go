package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"propflow/api/internal/api/handlers"
	"propflow/api/internal/apperr"
	"propflow/api/internal/models"
)

func TestAnalyticsHandler_Dashboard(t *testing.T) {
	svc := new(MockAnalyticsService)
	h := handlers.NewAnalyticsHandler(svc)
	r := newEngine(t, agentCaller)
	r.GET("/api/analytics/dashboard", h.Dashboard)

	svc.On("Dashboard", mock.Anything, agentCaller).Return(&models.Dashboard{
		KPIs:             models.KPIs{TotalListings: 4, ActiveListings: 3, TotalEnquiries: 9, UnreadEnquiries: 2},
		ListingsByType:   map[string]int64{"office": 3, "retail": 1},
		MonthlyEnquiries: map[string]int64{"Jun 26": 5},
	}, nil)

	w := serve(r, http.MethodGet, "/api/analytics/dashboard", "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	kpis := body["kpis"].(map[string]any)
	assert.Equal(t, float64(4), kpis["total_listings"])
	assert.Nil(t, kpis["active_agents"])
	assert.Equal(t, map[string]any{"Jun 26": float64(5)}, body["monthly_enquiries"])
}

func TestAnalyticsHandler_DashboardFailure(t *testing.T) {
	svc := new(MockAnalyticsService)
	h := handlers.NewAnalyticsHandler(svc)
	r := newEngine(t, adminCaller)
	r.GET("/api/analytics/dashboard", h.Dashboard)

	svc.On("Dashboard", mock.Anything, adminCaller).
		Return(nil, apperr.UpstreamErr("Failed to fetch analytics", errors.New("count: timeout")))

	w := serve(r, http.MethodGet, "/api/analytics/dashboard", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Failed to fetch analytics", body["error"])
	assert.Equal(t, "count: timeout", body["detail"])
}

func TestAnalyticsHandler_TopListings(t *testing.T) {
	svc := new(MockAnalyticsService)
	h := handlers.NewAnalyticsHandler(svc)
	r := newEngine(t, adminCaller)
	r.GET("/api/analytics/top-listings", h.TopListings)

	svc.On("TopListings", mock.Anything, adminCaller).Return([]models.TopListing{
		{ID: listingID, Title: "Sandton Office Suite", ViewCount: 120, EnquiryCount: 8, Status: models.StatusActive},
	}, nil)

	w := serve(r, http.MethodGet, "/api/analytics/top-listings", "")

	assert.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["listings"].([]any)
	assert.Len(t, rows, 1)
	assert.Equal(t, float64(120), rows[0].(map[string]any)["view_count"])
}
