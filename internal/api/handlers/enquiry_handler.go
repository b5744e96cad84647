package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/apperr"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/services"
)

// EnquiryHandler handles enquiry submission and the back-office inbox.
type EnquiryHandler struct {
	enquiryService services.IEnquiryService
}

func NewEnquiryHandler(enquiryService services.IEnquiryService) *EnquiryHandler {
	return &EnquiryHandler{enquiryService: enquiryService}
}

type submitEnquiryRequest struct {
	ListingID        string `json:"listing_id" binding:"required,uuid"`
	Name             string `json:"name" binding:"required,min=2,max=100"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone" binding:"omitempty,phone"`
	Message          string `json:"message" binding:"required,min=10,max=2000"`
	ViewingRequested bool   `json:"viewing_requested"`
	ViewingDate      string `json:"viewing_date"`
}

type enquiryStatusRequest struct {
	Status models.EnquiryStatus `json:"status" binding:"required,enquirystatus"`
}

// parseViewingDate accepts an RFC 3339 timestamp or a plain date.
func parseViewingDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validationf("viewing_date must be an ISO 8601 date")
}

// SubmitEnquiry handles POST /api/enquiries
func (h *EnquiryHandler) SubmitEnquiry(c *gin.Context) {
	var req submitEnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	viewingDate, err := parseViewingDate(req.ViewingDate)
	if err != nil {
		respondError(c, err)
		return
	}

	enquiry, err := h.enquiryService.Submit(c.Request.Context(), middleware.CallerFrom(c), services.EnquiryInput{
		ListingID:        req.ListingID,
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Message:          req.Message,
		ViewingRequested: req.ViewingRequested,
		ViewingDate:      viewingDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enquiry": enquiry, "message": "Enquiry submitted successfully"})
}

// ListEnquiries handles GET /api/enquiries
func (h *EnquiryHandler) ListEnquiries(c *gin.Context) {
	f, err := query.ParseEnquiryInbox(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	enquiries, page, err := h.enquiryService.Inbox(c.Request.Context(), middleware.CallerFrom(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enquiries": enquiries, "pagination": page})
}

// UpdateEnquiryStatus handles PATCH /api/enquiries/:id/status
func (h *EnquiryHandler) UpdateEnquiryStatus(c *gin.Context) {
	var req enquiryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	enquiry, err := h.enquiryService.UpdateStatus(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enquiry": enquiry})
}
