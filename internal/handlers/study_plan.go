package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/yungbote/studypilot-backend/internal/http/response"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/services"
)

// StudyPlanHandler reads and writes one study plan per user. The plan body
// is opaque JSON owned by the frontend; the backend only stores it.
type StudyPlanHandler struct {
	log    *logger.Logger
	memory services.MemoryService
}

func NewStudyPlanHandler(memory services.MemoryService, baseLog *logger.Logger) *StudyPlanHandler {
	return &StudyPlanHandler{
		log:    baseLog.With("handler", "StudyPlanHandler"),
		memory: memory,
	}
}

type saveStudyPlanRequest struct {
	UserIdentifier string          `json:"user_identifier"`
	Plan           json.RawMessage `json:"plan"`
}

// GET /api/study-plan?user_identifier=<id>
func (h *StudyPlanHandler) GetStudyPlan(c *gin.Context) {
	identifier := strings.TrimSpace(c.Query("user_identifier"))
	if identifier == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_user_identifier", fmt.Errorf("user_identifier is required"))
		return
	}

	user, err := h.memory.ResolveIdentity(c.Request.Context(), identifier)
	if err != nil {
		h.log.Error("Identity resolution failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "identity_failed", err)
		return
	}

	plan, err := h.memory.StudyPlan(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error("Study plan fetch failed", "user_id", user.ID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "study_plan_fetch_failed", err)
		return
	}
	if plan == nil {
		response.RespondOK(c, gin.H{"plan": nil})
		return
	}

	response.RespondOK(c, gin.H{"plan": plan.Plan, "updated_at": plan.UpdatedAt})
}

// POST /api/study-plan
func (h *StudyPlanHandler) SaveStudyPlan(c *gin.Context) {
	var req saveStudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.UserIdentifier) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_user_identifier", fmt.Errorf("user_identifier is required"))
		return
	}
	if len(req.Plan) == 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_plan", fmt.Errorf("plan is required"))
		return
	}

	user, err := h.memory.ResolveIdentity(c.Request.Context(), req.UserIdentifier)
	if err != nil {
		h.log.Error("Identity resolution failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "identity_failed", err)
		return
	}

	saved, err := h.memory.SaveStudyPlan(c.Request.Context(), user.ID, datatypes.JSON(req.Plan))
	if err != nil {
		h.log.Error("Study plan save failed", "user_id", user.ID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "study_plan_save_failed", err)
		return
	}

	response.RespondOK(c, gin.H{"success": true, "plan": saved.Plan, "updated_at": saved.UpdatedAt})
}
