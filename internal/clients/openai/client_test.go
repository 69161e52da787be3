package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	client, err := NewClient(Config{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Model:     "gpt-test",
		MaxTokens: 256,
		Timeout:   2 * time.Second,
	}, newTestLogger(t))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func respondWith(t *testing.T, w http.ResponseWriter, resp goopenai.ChatCompletionResponse) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var in goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if in.Model != "gpt-test" {
			t.Errorf("model = %q", in.Model)
		}
		if len(in.Messages) != 4 {
			t.Errorf("messages = %d, want 4", len(in.Messages))
		} else {
			wantRoles := []string{"system", "user", "assistant", "user"}
			for i, want := range wantRoles {
				if in.Messages[i].Role != want {
					t.Errorf("messages[%d].Role = %q, want %q", i, in.Messages[i].Role, want)
				}
			}
			if in.Messages[3].Content != "now solve 2x+5=15" {
				t.Errorf("messages[3].Content = %q", in.Messages[3].Content)
			}
		}
		if len(in.Tools) != 0 {
			t.Errorf("tools = %d, want none", len(in.Tools))
		}

		respondWith(t, w, goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{{
				Message:      goopenai.ChatCompletionMessage{Role: "assistant", Content: "Start by subtracting 5."},
				FinishReason: goopenai.FinishReasonStop,
			}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	history := []types.ChatMessage{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi there"},
	}
	result := client.Complete(context.Background(), "You are a tutor.", "now solve 2x+5=15", history, nil)

	if result.FinishReason != types.FinishStop {
		t.Fatalf("finish reason = %q", result.FinishReason)
	}
	if result.Content != "Start by subtracting 5." {
		t.Fatalf("content = %q", result.Content)
	}
	if len(result.ToolCalls) != 0 {
		t.Fatalf("tool calls = %d, want none", len(result.ToolCalls))
	}
}

func TestClientCompleteToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(in.Tools) != 1 || in.Tools[0].Function == nil || in.Tools[0].Function.Name != "solve_math_problem" {
			t.Errorf("tools = %+v", in.Tools)
		}
		if tc, ok := in.ToolChoice.(string); !ok || tc != "auto" {
			t.Errorf("tool_choice = %v", in.ToolChoice)
		}

		respondWith(t, w, goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{{
				Message: goopenai.ChatCompletionMessage{
					Role: "assistant",
					ToolCalls: []goopenai.ToolCall{{
						ID:   "call_1",
						Type: goopenai.ToolTypeFunction,
						Function: goopenai.FunctionCall{
							Name:      "solve_math_problem",
							Arguments: `{"problem":"2x+5=15"}`,
						},
					}},
				},
				FinishReason: goopenai.FinishReasonToolCalls,
			}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	tools := []types.ToolDefinition{{Name: "solve_math_problem", Parameters: map[string]any{"type": "object"}}}
	result := client.Complete(context.Background(), "system", "solve 2x+5=15", nil, tools)

	if result.FinishReason != types.FinishToolCalls {
		t.Fatalf("finish reason = %q", result.FinishReason)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "solve_math_problem" || call.Arguments != `{"problem":"2x+5=15"}` {
		t.Fatalf("tool call = %+v", call)
	}
}

func TestClientCompleteWithToolResultsWire(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(in.Messages) != 4 {
			t.Errorf("messages = %d, want 4", len(in.Messages))
		} else {
			assistant := in.Messages[2]
			if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
				t.Errorf("assistant tool calls = %+v", assistant.ToolCalls)
			}
			tool := in.Messages[3]
			if tool.Role != "tool" || tool.ToolCallID != "call_1" || tool.Name != "solve_math_problem" {
				t.Errorf("tool message = %+v", tool)
			}
		}

		respondWith(t, w, goopenai.ChatCompletionResponse{
			Choices: []goopenai.ChatCompletionChoice{{
				Message:      goopenai.ChatCompletionMessage{Role: "assistant", Content: "So x = 5."},
				FinishReason: goopenai.FinishReasonStop,
			}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	messages := []types.ChatMessage{
		{Role: types.RoleSystem, Content: "system"},
		{Role: types.RoleUser, Content: "solve 2x+5=15"},
		{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "call_1", Name: "solve_math_problem", Arguments: `{"problem":"2x+5=15"}`}}},
		{Role: types.RoleTool, Content: `{"success":true,"answer":"x = 5"}`, Name: "solve_math_problem", ToolCallID: "call_1"},
	}
	result := client.CompleteWithToolResults(context.Background(), messages, nil)

	if result.Content != "So x = 5." {
		t.Fatalf("content = %q", result.Content)
	}
	if result.FinishReason != types.FinishStop {
		t.Fatalf("finish reason = %q", result.FinishReason)
	}
}

func TestClientCompleteDegradedOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := client.Complete(context.Background(), "system", "hello", nil, nil)

	if result.FinishReason != types.FinishError {
		t.Fatalf("finish reason = %q, want error", result.FinishReason)
	}
	if !strings.Contains(result.Content, "I apologize") {
		t.Fatalf("content = %q, want readable apology", result.Content)
	}
}

func TestClientCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWith(t, w, goopenai.ChatCompletionResponse{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := client.Complete(context.Background(), "system", "hello", nil, nil)

	if result.FinishReason != types.FinishError {
		t.Fatalf("finish reason = %q, want error", result.FinishReason)
	}
}

func TestClientStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in goopenai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !in.Stream {
			t.Errorf("expected stream=true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"choices":[{"delta":{"content":"Let's "}}]}`,
			`data: {"choices":[{"delta":{}}]}`,
			`data: {"choices":[{"delta":{"content":"begin."}}]}`,
			`data: [DONE]`,
		}
		for _, frame := range frames {
			_, _ = io.WriteString(w, frame+"\n\n")
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var got strings.Builder
	err := client.Stream(context.Background(), "system", "hello", func(delta string) {
		got.WriteString(delta)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if got.String() != "Let's begin." {
		t.Fatalf("streamed = %q", got.String())
	}
}

func TestClientStreamUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	var got strings.Builder
	err := client.Stream(context.Background(), "system", "hello", func(delta string) {
		got.WriteString(delta)
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	// The failure itself is forwarded as a readable fragment.
	if !strings.Contains(got.String(), "Error:") {
		t.Fatalf("streamed = %q, want forwarded error text", got.String())
	}
}
