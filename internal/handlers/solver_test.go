package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studypilot-backend/internal/services"
	"github.com/yungbote/studypilot-backend/internal/types"
)

type fakeSolverService struct {
	result  types.ToolResult
	curated map[string]string
	solved  []string
}

func (f *fakeSolverService) Solve(_ context.Context, problem string) types.ToolResult {
	f.solved = append(f.solved, problem)
	result := f.result
	if result.Problem == "" {
		result.Problem = problem
	}
	return result
}

func (f *fakeSolverService) CuratedSteps(problem string) (string, bool) {
	steps, ok := f.curated[problem]
	return steps, ok
}

func (f *fakeSolverService) ToolDefinition() types.ToolDefinition {
	return types.ToolDefinition{Name: services.SolveMathToolName}
}

func newSolverRouter(t *testing.T, solver services.SolverService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewSolverHandler(solver, newTestLogger(t))
	r := gin.New()
	r.GET("/api/query", h.Query)
	return r
}

func getQuery(t *testing.T, r *gin.Engine, q string) *httptest.ResponseRecorder {
	t.Helper()
	path := "/api/query"
	if q != "" {
		path += "?q=" + url.QueryEscape(q)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeQueryBody(t *testing.T, rec *httptest.ResponseRecorder) queryResponse {
	t.Helper()
	var body queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestQueryEndpoint(t *testing.T) {
	solver := &fakeSolverService{result: types.ToolResult{
		Success: true,
		Answer:  "x = 5",
		Steps:   "Subtract 5 from both sides.\nDivide by 2.",
	}}
	r := newSolverRouter(t, solver)

	rec := getQuery(t, r, "solve 2x+5=15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	body := decodeQueryBody(t, rec)
	wantText := "Subtract 5 from both sides.\nDivide by 2.\n\nFinal answer: x = 5"
	if body.Text != wantText {
		t.Fatalf("text = %q, want %q", body.Text, wantText)
	}
	if body.Answer != "x = 5" || body.Steps != "Subtract 5 from both sides.\nDivide by 2." {
		t.Fatalf("body = %+v", body)
	}
	if len(solver.solved) != 1 || solver.solved[0] != "solve 2x+5=15" {
		t.Fatalf("solved = %v", solver.solved)
	}
}

func TestQueryEndpointMissingQ(t *testing.T) {
	r := newSolverRouter(t, &fakeSolverService{})

	rec := getQuery(t, r, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeQueryBody(t, rec)
	if body.Text != "Please ask a math question." {
		t.Fatalf("text = %q", body.Text)
	}
}

func TestQueryEndpointCuratedFallback(t *testing.T) {
	solver := &fakeSolverService{
		result:  types.ToolResult{Success: false, Error: "no result for input"},
		curated: map[string]string{"solve 2x + 5 = 15": "Move the constant, then divide by the coefficient."},
	}
	r := newSolverRouter(t, solver)

	rec := getQuery(t, r, "solve 2x + 5 = 15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeQueryBody(t, rec)
	if body.Text != "Move the constant, then divide by the coefficient." {
		t.Fatalf("text = %q", body.Text)
	}
	if body.Steps != body.Text || body.HowToSolve != body.Text {
		t.Fatalf("body = %+v", body)
	}
	if body.Answer != "" {
		t.Fatalf("answer = %q, want empty", body.Answer)
	}
}

func TestQueryEndpointFailure(t *testing.T) {
	solver := &fakeSolverService{result: types.ToolResult{Success: false, Error: "no result for input"}}
	r := newSolverRouter(t, solver)

	rec := getQuery(t, r, "gibberish")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeQueryBody(t, rec)
	if !strings.Contains(body.Text, "Sorry, I couldn't solve that.") || !strings.Contains(body.Text, "no result for input") {
		t.Fatalf("text = %q", body.Text)
	}
}

func TestComposeQueryText(t *testing.T) {
	tests := []struct {
		name   string
		steps  string
		answer string
		want   string
	}{
		{name: "steps and answer", steps: "Divide by 2.", answer: "x = 5", want: "Divide by 2.\n\nFinal answer: x = 5"},
		{name: "answer already in steps", steps: "Divide by 2 to get x = 5.", answer: "x = 5", want: "Divide by 2 to get x = 5."},
		{name: "answer only", steps: "", answer: "42", want: "Final answer: 42"},
		{name: "nothing", steps: "", answer: "", want: "No result."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := composeQueryText(tt.steps, tt.answer); got != tt.want {
				t.Fatalf("composeQueryText(%q, %q) = %q, want %q", tt.steps, tt.answer, got, tt.want)
			}
		})
	}
}
