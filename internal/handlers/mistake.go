package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/http/response"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/services"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// MistakeHandler records and reviews the mistakes a student wants to
// revisit. Every route resolves the caller's identifier to a user first;
// mistakes are never shared across users.
type MistakeHandler struct {
	log    *logger.Logger
	memory services.MemoryService
}

func NewMistakeHandler(memory services.MemoryService, baseLog *logger.Logger) *MistakeHandler {
	return &MistakeHandler{
		log:    baseLog.With("handler", "MistakeHandler"),
		memory: memory,
	}
}

type addMistakeRequest struct {
	UserIdentifier string `json:"user_identifier"`
	Course         string `json:"course"`
	Topic          string `json:"topic"`
	Question       string `json:"question"`
	Correction     string `json:"correction"`
}

type mistakeInfo struct {
	ID         uint      `json:"id"`
	Course     string    `json:"course"`
	Topic      string    `json:"topic"`
	Question   string    `json:"question"`
	Correction string    `json:"correction"`
	CreatedAt  time.Time `json:"created_at"`
}

func newMistakeInfo(m *types.Mistake) mistakeInfo {
	return mistakeInfo{
		ID:         m.ID,
		Course:     m.Course,
		Topic:      m.Topic,
		Question:   m.Question,
		Correction: m.Correction,
		CreatedAt:  m.CreatedAt,
	}
}

// POST /api/mistakes
func (h *MistakeHandler) AddMistake(c *gin.Context) {
	var req addMistakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.UserIdentifier) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_user_identifier", fmt.Errorf("user_identifier is required"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_question", fmt.Errorf("question is required"))
		return
	}

	course := strings.TrimSpace(req.Course)
	if course == "" {
		course = services.DefaultCourse
	}

	user, err := h.memory.ResolveIdentity(c.Request.Context(), req.UserIdentifier)
	if err != nil {
		h.log.Error("Identity resolution failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "identity_failed", err)
		return
	}

	mistake, err := h.memory.AddMistake(c.Request.Context(), user.ID, course, req.Topic, req.Question, req.Correction)
	if err != nil {
		h.log.Error("Mistake creation failed", "user_id", user.ID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "mistake_create_failed", err)
		return
	}

	response.RespondOK(c, gin.H{"success": true, "mistake": newMistakeInfo(mistake)})
}

// GET /api/mistakes?user_identifier=<id>&course=<course>
func (h *MistakeHandler) ListMistakes(c *gin.Context) {
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

	// Empty course lists across all courses.
	mistakes, err := h.memory.Mistakes(c.Request.Context(), user.ID, strings.TrimSpace(c.Query("course")))
	if err != nil {
		h.log.Error("Mistake listing failed", "user_id", user.ID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "mistake_list_failed", err)
		return
	}

	infos := make([]mistakeInfo, 0, len(mistakes))
	for _, m := range mistakes {
		infos = append(infos, newMistakeInfo(m))
	}
	response.RespondOK(c, gin.H{"mistakes": infos})
}

// DELETE /api/mistakes/:id?user_identifier=<id>
func (h *MistakeHandler) DeleteMistake(c *gin.Context) {
	identifier := strings.TrimSpace(c.Query("user_identifier"))
	if identifier == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_user_identifier", fmt.Errorf("user_identifier is required"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_mistake_id", fmt.Errorf("mistake id must be an integer"))
		return
	}

	user, err := h.memory.ResolveIdentity(c.Request.Context(), identifier)
	if err != nil {
		h.log.Error("Identity resolution failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "identity_failed", err)
		return
	}

	deleted, err := h.memory.DeleteMistake(c.Request.Context(), uint(id), user.ID)
	if err != nil {
		h.log.Error("Mistake deletion failed", "user_id", user.ID, "mistake_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "mistake_delete_failed", err)
		return
	}
	if !deleted {
		response.RespondError(c, http.StatusNotFound, "mistake_not_found", fmt.Errorf("mistake not found"))
		return
	}

	response.RespondOK(c, gin.H{"success": true})
}
