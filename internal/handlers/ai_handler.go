package handlers

import (
	"net/http"

	"go-sales-crm/internal/ai"
	"go-sales-crm/internal/apperr"

	"github.com/gin-gonic/gin"
)

type AskRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type AssistantHandler struct {
	agent *ai.Agent
}

func NewAssistantHandler(agent *ai.Agent) *AssistantHandler {
	return &AssistantHandler{agent: agent}
}

// --- POST: /api/assistant/ask ---
func (h *AssistantHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	// 1. The key is optional at startup
	if !h.agent.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured"})
		return
	}

	// 2. Run the agent
	reply, err := h.agent.Ask(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, apperr.Internal("The assistant could not answer", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
