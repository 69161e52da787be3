package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/http/response"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/services"
	"github.com/yungbote/studypilot-backend/internal/sse"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService, baseLog *logger.Logger) *ChatHandler {
	return &ChatHandler{
		log:  baseLog.With("handler", "ChatHandler"),
		chat: chat,
	}
}

// chatRequest mirrors what the chat UI sends. course_name is the legacy
// field name; course wins when both are set.
type chatRequest struct {
	Message             string              `json:"message"`
	Course              string              `json:"course"`
	CourseName          string              `json:"course_name"`
	ConversationHistory []types.ChatMessage `json:"conversation_history"`
	UserIdentifier      string              `json:"user_identifier"`
	UseMemory           bool                `json:"use_memory"`
	UploadedFiles       []string            `json:"uploaded_files"`
}

func (r chatRequest) toTurnRequest() services.TurnRequest {
	course := strings.TrimSpace(r.Course)
	if course == "" {
		course = strings.TrimSpace(r.CourseName)
	}
	return services.TurnRequest{
		Message:        r.Message,
		Course:         course,
		History:        r.ConversationHistory,
		UserIdentifier: r.UserIdentifier,
		UseMemory:      r.UseMemory,
		UploadedFiles:  r.UploadedFiles,
	}
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_message", fmt.Errorf("message is required"))
		return
	}

	result, err := h.chat.ProcessTurn(c.Request.Context(), req.toTurnRequest())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "chat_failed", err)
		return
	}

	payload := gin.H{
		"response": result.Response,
		"status":   "success",
	}
	if result.Similar != nil {
		payload["similar_question"] = result.Similar
	}
	response.RespondOK(c, payload)
}

// POST /api/chat/stream
//
// Streams the reply as SSE data frames terminated by [DONE]. Memory and
// tools are not used on this path.
func (h *ChatHandler) ChatStream(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_message", fmt.Errorf("message is required"))
		return
	}

	writer, err := sse.NewWriter(c.Writer)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "streaming_unsupported", err)
		return
	}

	streamErr := h.chat.ProcessTurnStream(c.Request.Context(), req.toTurnRequest(), func(delta string) {
		if err := writer.SendData(delta); err != nil {
			h.log.Debug("SSE write failed, client likely gone", "error", err)
		}
	})
	if streamErr != nil {
		h.log.Error("Streaming turn failed", "error", streamErr)
		_ = writer.SendData("Sorry, I'm having trouble responding right now. Please try again.")
	}
	_ = writer.SendDone()
}
