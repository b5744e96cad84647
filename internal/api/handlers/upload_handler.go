package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/services"
)

// UploadHandler hands out presigned upload URLs.
type UploadHandler struct {
	uploadService services.IUploadService
}

func NewUploadHandler(uploadService services.IUploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Folder      string `json:"folder"`
}

// Presign handles POST /api/uploads/presign
func (h *UploadHandler) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	up, err := h.uploadService.Presign(c.Request.Context(), middleware.CallerFrom(c), services.UploadInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Folder:      req.Folder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}
