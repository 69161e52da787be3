package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/http/response"
)

const serviceName = "StudyPilot Backend"

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": "healthy", "service": serviceName})
}
