package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/models"
	"propflow/api/internal/services"
)

// ChatHandler proxies the property advisor chat.
type ChatHandler struct {
	chatService services.IChatService
}

func NewChatHandler(chatService services.IChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Messages       []models.ChatMessage `json:"messages" binding:"required,min=1,max=50,dive"`
	ListingContext string               `json:"listing_context" binding:"omitempty,uuid"`
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	reply, err := h.chatService.Reply(c.Request.Context(), middleware.CallerFrom(c), services.ChatInput{
		Messages:       req.Messages,
		ListingContext: req.ListingContext,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply.Text, "usage": reply.Usage})
}
