package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/services"
)

// SolverHandler exposes the math solver directly, bypassing the tutor. The
// chat UI uses it for its "just solve it" panel.
type SolverHandler struct {
	log    *logger.Logger
	solver services.SolverService
}

func NewSolverHandler(solver services.SolverService, baseLog *logger.Logger) *SolverHandler {
	return &SolverHandler{
		log:    baseLog.With("handler", "SolverHandler"),
		solver: solver,
	}
}

type queryResponse struct {
	Text       string `json:"text"`
	Answer     string `json:"answer"`
	Steps      string `json:"steps"`
	HowToSolve string `json:"how_to_solve,omitempty"`
}

// GET /api/query?q=<question>
func (h *SolverHandler) Query(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, queryResponse{Text: "Please ask a math question."})
		return
	}

	result := h.solver.Solve(c.Request.Context(), q)
	howTo, _ := h.solver.CuratedSteps(q)

	if !result.Success {
		// The curated table can still explain the method even when no live
		// answer is available.
		if howTo != "" {
			c.JSON(http.StatusOK, queryResponse{
				Text:       howTo,
				Steps:      howTo,
				HowToSolve: howTo,
			})
			return
		}
		text := "Sorry, I couldn't solve that."
		if result.Error != "" {
			text = fmt.Sprintf("Sorry, I couldn't solve that. (%s)", result.Error)
		}
		c.JSON(http.StatusInternalServerError, queryResponse{Text: text})
		return
	}

	c.JSON(http.StatusOK, queryResponse{
		Text:       composeQueryText(result.Steps, result.Answer),
		Answer:     result.Answer,
		Steps:      result.Steps,
		HowToSolve: howTo,
	})
}

// composeQueryText renders a solver result as chat-ready text: the steps,
// then the final answer unless the steps already state it.
func composeQueryText(steps, answer string) string {
	var parts []string
	if steps != "" {
		parts = append(parts, steps)
	}
	if answer != "" && !strings.Contains(steps, answer) {
		parts = append(parts, "\nFinal answer: "+answer)
	}
	if len(parts) == 0 {
		return "No result."
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
