package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/studypilot-backend/internal/clients/openai"
	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
)

// TurnRequest is one student message plus everything the caller knows about
// the conversation. History is the caller-supplied transcript; when memory is
// enabled and the identifier resolves, the persisted transcript replaces it.
type TurnRequest struct {
	Message        string
	Course         string
	History        []types.ChatMessage
	UserIdentifier string
	UseMemory      bool
	UploadedFiles  []string
}

// TurnResult is the finished turn: the tutor's reply, plus the repeat-question
// match when one was detected (surfaced so the UI can badge it).
type TurnResult struct {
	Response string
	Similar  *types.SimilarityMatch
}

// ChatService runs tutoring turns end to end: memory recall, prompt assembly,
// the completion call, tool dispatch, the follow-up completion, and
// persistence.
//
// A turn makes at most two completion calls. If the first one requests tool
// calls, every requested call is executed and answered with exactly one
// tool-role message, then the follow-up completion produces the final text.
// Tool calls in the follow-up are not honored; there is only one tool round.
type ChatService interface {
	ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
	// ProcessTurnStream streams a simplified turn: no memory, no tools, no
	// personalization, deltas pushed through onDelta as they arrive.
	ProcessTurnStream(ctx context.Context, req TurnRequest, onDelta func(delta string)) error
}

type chatService struct {
	log        *logger.Logger
	gateway    openai.Client
	solver     SolverService
	memory     MemoryService
	similarity SimilarityService
	prompts    PromptService
	documents  DocumentService
}

func NewChatService(
	gateway openai.Client,
	solver SolverService,
	memory MemoryService,
	similarity SimilarityService,
	prompts PromptService,
	documents DocumentService,
	baseLog *logger.Logger,
) ChatService {
	return &chatService{
		log:        baseLog.With("service", "ChatService"),
		gateway:    gateway,
		solver:     solver,
		memory:     memory,
		similarity: similarity,
		prompts:    prompts,
		documents:  documents,
	}
}

func (s *chatService) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}
	course := strings.TrimSpace(req.Course)
	if course == "" {
		course = DefaultCourse
	}

	user := s.resolveUser(ctx, req)

	// Persisted history wins whenever an identity resolved, even when it is
	// empty; the caller's transcript is only trusted for anonymous turns or
	// when the fetch itself fails.
	history := req.History
	if user != nil {
		persisted, err := s.memory.RecentTurns(ctx, user.ID, course, RecentTurnLimit)
		if err != nil {
			s.log.Warn("History fetch failed, falling back to caller history", "user_id", user.ID, "error", err)
		} else {
			history = persisted
		}
	}

	var similar *types.SimilarityMatch
	var mistakes []*types.Mistake
	if user != nil {
		questions, err := s.memory.RecentQuestions(ctx, user.ID, course, RecentQuestionLimit)
		if err != nil {
			s.log.Warn("Recent questions fetch failed, skipping repeat detection", "user_id", user.ID, "error", err)
		} else {
			similar = s.similarity.FindSimilar(questions, message)
		}

		mistakes, err = s.memory.Mistakes(ctx, user.ID, course)
		if err != nil {
			s.log.Warn("Mistake fetch failed, skipping mistake digest", "user_id", user.ID, "error", err)
			mistakes = nil
		}
	}

	var docs []DocumentContext
	if len(req.UploadedFiles) > 0 && s.documents != nil {
		docs = s.documents.ContextFor(req.UploadedFiles)
	}

	systemPrompt := s.prompts.TutorPrompt(course, mistakes, similar, docs)
	tools := []types.ToolDefinition{s.solver.ToolDefinition()}

	initial := s.gateway.Complete(ctx, systemPrompt, message, history, tools)

	finalText := initial.Content
	if len(initial.ToolCalls) > 0 {
		finalText = s.resolveToolCalls(ctx, systemPrompt, history, message, initial, tools)
	}

	if user != nil {
		s.persistTurn(ctx, user.ID, course, message, finalText)
	}

	return &TurnResult{Response: finalText, Similar: similar}, nil
}

func (s *chatService) ProcessTurnStream(ctx context.Context, req TurnRequest, onDelta func(delta string)) error {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return fmt.Errorf("message is required")
	}
	systemPrompt := s.prompts.StreamPrompt(req.Course)
	return s.gateway.Stream(ctx, systemPrompt, message, onDelta)
}

// resolveUser maps the caller's identifier to a stored user. Any failure
// downgrades the turn to non-personalized; the student still gets an answer.
func (s *chatService) resolveUser(ctx context.Context, req TurnRequest) *types.User {
	if !req.UseMemory || s.memory == nil {
		return nil
	}
	identifier := strings.TrimSpace(req.UserIdentifier)
	if identifier == "" {
		return nil
	}
	user, err := s.memory.ResolveIdentity(ctx, identifier)
	if err != nil {
		s.log.Warn("Identity resolution failed, continuing without memory", "error", err)
		return nil
	}
	return user
}

// resolveToolCalls runs the single tool round: execute every requested call,
// extend the exact message list the first completion saw with the assistant
// turn and one tool turn per call, and ask for the follow-up completion. The
// system prompt is not re-augmented.
func (s *chatService) resolveToolCalls(
	ctx context.Context,
	systemPrompt string,
	history []types.ChatMessage,
	userMessage string,
	initial types.CompletionResult,
	tools []types.ToolDefinition,
) string {
	s.log.Info("Completion requested tool calls", "count", len(initial.ToolCalls))

	messages := make([]types.ChatMessage, 0, len(history)+3+len(initial.ToolCalls))
	messages = append(messages, types.ChatMessage{Role: types.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, types.ChatMessage{Role: types.RoleUser, Content: userMessage})
	messages = append(messages, types.ChatMessage{
		Role:      types.RoleAssistant,
		Content:   initial.Content,
		ToolCalls: initial.ToolCalls,
	})

	// Exactly one tool message per requested call, in request order, even for
	// unknown tools or garbage arguments. An unanswered call ID would poison
	// the follow-up completion.
	results := s.executeToolCalls(ctx, initial.ToolCalls)
	for i, call := range initial.ToolCalls {
		payload, _ := json.Marshal(results[i])
		messages = append(messages, types.ChatMessage{
			Role:       types.RoleTool,
			Content:    string(payload),
			Name:       call.Name,
			ToolCallID: call.ID,
		})
	}

	followUp := s.gateway.CompleteWithToolResults(ctx, messages, tools)
	return followUp.Content
}

// executeToolCalls dispatches the requested calls concurrently and returns
// results indexed to match calls.
func (s *chatService) executeToolCalls(ctx context.Context, calls []types.ToolCall) []types.ToolResult {
	results := make([]types.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = s.executeToolCall(gctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *chatService) executeToolCall(ctx context.Context, call types.ToolCall) types.ToolResult {
	// Failed results echo the raw arguments as the problem so the tool-message
	// payload keeps the same shape as solver-produced results.
	rawProblem := strings.TrimSpace(call.Arguments)

	if call.Name != SolveMathToolName {
		s.log.Warn("Completion requested unknown tool", "tool", call.Name)
		return types.ToolResult{Success: false, Problem: rawProblem, Error: fmt.Sprintf("unknown tool %q", call.Name)}
	}

	var args struct {
		Problem string `json:"problem"`
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		s.log.Warn("Tool call arguments did not parse", "tool", call.Name, "error", err)
		return types.ToolResult{Success: false, Problem: rawProblem, Error: "invalid tool arguments: " + err.Error()}
	}
	if strings.TrimSpace(args.Problem) == "" {
		return types.ToolResult{Success: false, Problem: rawProblem, Error: "missing problem argument"}
	}

	s.log.Info("Executing tool call", "tool", call.Name, "problem", args.Problem)
	return s.solver.Solve(ctx, args.Problem)
}

// persistTurn is best-effort: a failure costs memory, never the response.
// The user turn is written before the assistant turn so the stored log
// replays in conversation order; if the user write fails the assistant write
// is skipped rather than stored orphaned.
func (s *chatService) persistTurn(ctx context.Context, userID uint, course, userMessage, assistantMessage string) {
	if err := s.memory.AppendTurn(ctx, userID, course, types.RoleUser, userMessage); err != nil {
		s.log.Error("Failed to persist user turn (continuing)", "user_id", userID, "error", err)
		return
	}
	if assistantMessage == "" {
		return
	}
	if err := s.memory.AppendTurn(ctx, userID, course, types.RoleAssistant, assistantMessage); err != nil {
		s.log.Error("Failed to persist assistant turn (continuing)", "user_id", userID, "error", err)
	}
}
