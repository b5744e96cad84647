package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/services"
)

// AnalyticsHandler serves the back-office dashboard.
type AnalyticsHandler struct {
	analyticsService services.IAnalyticsService
}

func NewAnalyticsHandler(analyticsService services.IAnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Dashboard handles GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	d, err := h.analyticsService.Dashboard(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// TopListings handles GET /api/analytics/top-listings
func (h *AnalyticsHandler) TopListings(c *gin.Context) {
	rows, err := h.analyticsService.TopListings(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": rows})
}
