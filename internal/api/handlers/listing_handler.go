package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/models"
	"propflow/api/internal/query"
	"propflow/api/internal/services"
)

// ListingHandler handles REST requests for listings.
type ListingHandler struct {
	listingService services.IListingService
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService services.IListingService) *ListingHandler {
	return &ListingHandler{listingService: listingService}
}

type createListingRequest struct {
	Title       string               `json:"title" binding:"required,min=5,max=200"`
	Type        models.PropertyType  `json:"type" binding:"required,propertytype"`
	ListingType models.ListingType   `json:"listing_type" binding:"required,listingtype"`
	Price       *float64             `json:"price" binding:"required,gte=0"`
	PriceUnit   string               `json:"price_unit" binding:"max=50"`
	SizeSqm     *float64             `json:"size_sqm" binding:"required,gte=1"`
	Location    string               `json:"location" binding:"required"`
	City        string               `json:"city" binding:"required"`
	Province    string               `json:"province" binding:"required"`
	Description string               `json:"description"`
	Features    map[string]any       `json:"features"`
	Images      []string             `json:"images"`
	Status      models.ListingStatus `json:"status" binding:"omitempty,listingstatus"`
	AgentID     string               `json:"agent_id" binding:"omitempty,uuid"`
}

type listingStatusRequest struct {
	Status models.ListingStatus `json:"status" binding:"required,listingstatus"`
}

type assignListingRequest struct {
	AgentID string `json:"agent_id" binding:"required,uuid"`
}

// SearchListings handles GET /api/listings
func (h *ListingHandler) SearchListings(c *gin.Context) {
	f, err := query.ParseListingSearch(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	listings, page, err := h.listingService.Search(c.Request.Context(), middleware.CallerFrom(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "pagination": page})
}

// GetListing handles GET /api/listings/:id
func (h *ListingHandler) GetListing(c *gin.Context) {
	listing, err := h.listingService.Get(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

// BrowseListings handles GET /api/listings/admin/all
func (h *ListingHandler) BrowseListings(c *gin.Context) {
	f, err := query.ParseListingBrowse(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	listings, page, err := h.listingService.Browse(c.Request.Context(), middleware.CallerFrom(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings, "pagination": page})
}

// CreateListing handles POST /api/listings
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	listing, err := h.listingService.Create(c.Request.Context(), middleware.CallerFrom(c), services.ListingInput{
		Title:       req.Title,
		Type:        req.Type,
		ListingType: req.ListingType,
		Price:       *req.Price,
		PriceUnit:   req.PriceUnit,
		SizeSqm:     *req.SizeSqm,
		Location:    req.Location,
		City:        req.City,
		Province:    req.Province,
		Description: req.Description,
		Features:    req.Features,
		Images:      req.Images,
		Status:      req.Status,
		AgentID:     req.AgentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"listing": listing, "message": "Listing created successfully"})
}

// UpdateListing handles PUT /api/listings/:id. Only the mutable fields of the
// body are applied; the service validates them.
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondBindError(c, err)
		return
	}
	listing, err := h.listingService.Update(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing, "message": "Listing updated successfully"})
}

// UpdateListingStatus handles PATCH /api/listings/:id/status
func (h *ListingHandler) UpdateListingStatus(c *gin.Context) {
	var req listingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	listing, err := h.listingService.UpdateStatus(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing, "message": fmt.Sprintf("Status updated to %s", req.Status)})
}

// AssignListing handles PATCH /api/listings/:id/assign
func (h *ListingHandler) AssignListing(c *gin.Context) {
	var req assignListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	listing, err := h.listingService.Assign(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.AgentID)
	if err != nil {
		respondError(c, err)
		return
	}
	name := req.AgentID
	if listing.Agent != nil && listing.Agent.FullName != "" {
		name = listing.Agent.FullName
	}
	c.JSON(http.StatusOK, gin.H{"listing": listing, "message": "Listing assigned to " + name})
}

// DeleteListing handles DELETE /api/listings/:id
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	if err := h.listingService.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted successfully"})
}
