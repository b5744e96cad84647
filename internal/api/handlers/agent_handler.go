package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propflow/api/internal/api/middleware"
	"propflow/api/internal/services"
)

// AgentHandler handles the agent roster.
type AgentHandler struct {
	agentService services.IAgentService
}

func NewAgentHandler(agentService services.IAgentService) *AgentHandler {
	return &AgentHandler{agentService: agentService}
}

type agentStatusRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListAgents handles GET /api/agents
func (h *AgentHandler) ListAgents(c *gin.Context) {
	agents, err := h.agentService.Roster(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

// UpdateAgentStatus handles PATCH /api/agents/:id/status
func (h *AgentHandler) UpdateAgentStatus(c *gin.Context) {
	var req agentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	u, err := h.agentService.SetActive(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
