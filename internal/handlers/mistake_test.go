package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/studypilot-backend/internal/services"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type fakeMemoryService struct {
	user       *types.User
	resolveErr error

	mistakes  []*types.Mistake
	added     []*types.Mistake
	deleted   bool
	deletedID uint

	plan      *types.StudyPlan
	savedPlan datatypes.JSON
}

func (f *fakeMemoryService) ResolveIdentity(_ context.Context, identifier string) (*types.User, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.user != nil {
		return f.user, nil
	}
	return &types.User{Model: gorm.Model{ID: 1}, Identifier: identifier}, nil
}

func (f *fakeMemoryService) AppendTurn(context.Context, uint, string, string, string) error {
	return nil
}

func (f *fakeMemoryService) RecentTurns(context.Context, uint, string, int) ([]types.ChatMessage, error) {
	return nil, nil
}

func (f *fakeMemoryService) RecentQuestions(context.Context, uint, string, int) ([]string, error) {
	return nil, nil
}

func (f *fakeMemoryService) Mistakes(context.Context, uint, string) ([]*types.Mistake, error) {
	return f.mistakes, nil
}

func (f *fakeMemoryService) AddMistake(_ context.Context, userID uint, course, topic, question, correction string) (*types.Mistake, error) {
	mistake := &types.Mistake{
		Model:      gorm.Model{ID: uint(len(f.added) + 1)},
		UserID:     userID,
		Course:     course,
		Topic:      topic,
		Question:   question,
		Correction: correction,
	}
	f.added = append(f.added, mistake)
	return mistake, nil
}

func (f *fakeMemoryService) DeleteMistake(_ context.Context, mistakeID, _ uint) (bool, error) {
	f.deletedID = mistakeID
	return f.deleted, nil
}

func (f *fakeMemoryService) StudyPlan(context.Context, uint) (*types.StudyPlan, error) {
	return f.plan, nil
}

func (f *fakeMemoryService) SaveStudyPlan(_ context.Context, userID uint, plan datatypes.JSON) (*types.StudyPlan, error) {
	f.savedPlan = plan
	return &types.StudyPlan{UserID: userID, Plan: plan}, nil
}

func newMistakeRouter(t *testing.T, memory services.MemoryService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewMistakeHandler(memory, newTestLogger(t))
	r := gin.New()
	r.GET("/api/mistakes", h.ListMistakes)
	r.POST("/api/mistakes", h.AddMistake)
	r.DELETE("/api/mistakes/:id", h.DeleteMistake)
	return r
}

func TestAddMistakeEndpoint(t *testing.T) {
	memory := &fakeMemoryService{}
	r := newMistakeRouter(t, memory)

	rec := postJSON(t, r, "/api/mistakes", `{
		"user_identifier": "amy@example.com",
		"course": "Algebra I",
		"topic": "factoring",
		"question": "factor x^2-9",
		"correction": "(x-3)(x+3)"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success bool        `json:"success"`
		Mistake mistakeInfo `json:"mistake"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.Success || body.Mistake.ID == 0 || body.Mistake.Question != "factor x^2-9" {
		t.Fatalf("body = %+v", body)
	}
	if len(memory.added) != 1 || memory.added[0].Course != "Algebra I" {
		t.Fatalf("added = %+v", memory.added)
	}
}

func TestAddMistakeEndpointDefaultsCourse(t *testing.T) {
	memory := &fakeMemoryService{}
	r := newMistakeRouter(t, memory)

	rec := postJSON(t, r, "/api/mistakes", `{"user_identifier": "amy", "question": "q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(memory.added) != 1 || memory.added[0].Course != services.DefaultCourse {
		t.Fatalf("added = %+v", memory.added)
	}
}

func TestAddMistakeEndpointValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "missing identifier", body: `{"question": "q"}`, wantCode: "missing_user_identifier"},
		{name: "missing question", body: `{"user_identifier": "amy"}`, wantCode: "missing_question"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newMistakeRouter(t, &fakeMemoryService{})
			rec := postJSON(t, r, "/api/mistakes", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantCode) {
				t.Fatalf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestListMistakesEndpoint(t *testing.T) {
	memory := &fakeMemoryService{mistakes: []*types.Mistake{
		{Model: gorm.Model{ID: 2}, Course: "Algebra I", Question: "newer"},
		{Model: gorm.Model{ID: 1}, Course: "Algebra I", Question: "older"},
	}}
	r := newMistakeRouter(t, memory)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mistakes?user_identifier=amy&course=Algebra+I", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Mistakes []mistakeInfo `json:"mistakes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Mistakes) != 2 || body.Mistakes[0].Question != "newer" {
		t.Fatalf("mistakes = %+v", body.Mistakes)
	}
}

func TestListMistakesEndpointRequiresIdentifier(t *testing.T) {
	r := newMistakeRouter(t, &fakeMemoryService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mistakes", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteMistakeEndpoint(t *testing.T) {
	memory := &fakeMemoryService{deleted: true}
	r := newMistakeRouter(t, memory)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/mistakes/7?user_identifier=amy", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if memory.deletedID != 7 {
		t.Fatalf("deletedID = %d", memory.deletedID)
	}
}

func TestDeleteMistakeEndpointNotFound(t *testing.T) {
	r := newMistakeRouter(t, &fakeMemoryService{deleted: false})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/mistakes/7?user_identifier=amy", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mistake_not_found") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestDeleteMistakeEndpointBadID(t *testing.T) {
	r := newMistakeRouter(t, &fakeMemoryService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/mistakes/abc?user_identifier=amy", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_mistake_id") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
