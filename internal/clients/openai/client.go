package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/types"
	"github.com/yungbote/studypilot-backend/internal/utils"
)

// Config is the immutable gateway configuration, resolved once at startup
// and handed to NewClient. No ambient process-wide state.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
	Timeout     time.Duration
}

func ConfigFromEnv(log *logger.Logger) (Config, error) {
	apiKey := strings.TrimSpace(utils.GetEnv("OPENAI_API_KEY", "", log))
	if apiKey == "" {
		return Config{}, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return Config{
		APIKey:      apiKey,
		BaseURL:     strings.TrimSpace(utils.GetEnv("OPENAI_BASE_URL", "", log)),
		Model:       strings.TrimSpace(utils.GetEnv("OPENAI_MODEL", "gpt-4o", log)),
		Temperature: float32(utils.GetEnvAsFloat("OPENAI_TEMPERATURE", 0.7, log)),
		MaxTokens:   utils.GetEnvAsInt("OPENAI_MAX_TOKENS", 1000, log),
		TopP:        float32(utils.GetEnvAsFloat("OPENAI_TOP_P", 0.95, log)),
		Timeout:     time.Duration(utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 60, log)) * time.Second,
	}, nil
}

// Client is the completion gateway. Both completion methods encode transport
// failure in the returned CompletionResult (FinishError + readable content)
// instead of returning an error, so callers branch on finish reason only.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userMessage string, history []types.ChatMessage, tools []types.ToolDefinition) types.CompletionResult
	CompleteWithToolResults(ctx context.Context, messages []types.ChatMessage, tools []types.ToolDefinition) types.CompletionResult
	Stream(ctx context.Context, systemPrompt, userMessage string, onDelta func(delta string)) error
}

type client struct {
	log *logger.Logger
	cfg Config
	api *goopenai.Client
}

func NewClient(cfg Config, log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing API key")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &client{
		log: log.With("service", "CompletionClient"),
		cfg: cfg,
		api: goopenai.NewClientWithConfig(apiCfg),
	}, nil
}

// Complete sends system prompt + history + the new user message. With an
// empty history this collapses to a single synthesized user turn.
func (c *client) Complete(ctx context.Context, systemPrompt, userMessage string, history []types.ChatMessage, tools []types.ToolDefinition) types.CompletionResult {
	messages := make([]types.ChatMessage, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, types.ChatMessage{Role: types.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, types.ChatMessage{Role: types.RoleUser, Content: userMessage})
	return c.CompleteWithToolResults(ctx, messages, tools)
}

// CompleteWithToolResults replays an already-assembled message list verbatim,
// tool turns included.
func (c *client) CompleteWithToolResults(ctx context.Context, messages []types.ChatMessage, tools []types.ToolDefinition) types.CompletionResult {
	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toWireMessages(messages),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
	}
	if wireTools := toWireTools(tools); wireTools != nil {
		req.Tools = wireTools
		req.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return c.degraded(err)
	}
	if len(resp.Choices) == 0 {
		c.log.Error("Completion response carried no choices")
		return types.CompletionResult{
			Content:      "I apologize, but I encountered an issue generating a response. Please try again.",
			FinishReason: types.FinishError,
		}
	}

	choice := resp.Choices[0]
	result := types.CompletionResult{
		Content:      choice.Message.Content,
		FinishReason: normalizeFinishReason(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if len(result.ToolCalls) > 0 {
		result.FinishReason = types.FinishToolCalls
	}
	return result
}

// Stream forwards incremental content fragments to onDelta. Fragments
// without content are skipped; the upstream [DONE] sentinel surfaces as
// io.EOF and ends the stream cleanly. A mid-stream failure is forwarded as a
// final readable fragment so the frontend never hangs on silence.
func (c *client) Stream(ctx context.Context, systemPrompt, userMessage string, onDelta func(delta string)) error {
	messages := make([]types.ChatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, types.ChatMessage{Role: types.RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, types.ChatMessage{Role: types.RoleUser, Content: userMessage})

	req := goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toWireMessages(messages),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		TopP:        c.cfg.TopP,
		Stream:      true,
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		c.log.Error("Streaming completion failed to start", "error", err)
		if onDelta != nil {
			onDelta(fmt.Sprintf("Error: %v", err))
		}
		return err
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return nil
		}
		if recvErr != nil {
			c.log.Error("Streaming completion interrupted", "error", recvErr)
			if onDelta != nil {
				onDelta(fmt.Sprintf("Error: %v", recvErr))
			}
			return recvErr
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if onDelta != nil {
			onDelta(delta)
		}
	}
}

func (c *client) degraded(err error) types.CompletionResult {
	c.log.Error("Completion request failed", "error", err)
	content := fmt.Sprintf("I apologize, but I encountered an error: %v", err)
	if isTimeout(err) {
		content = "I apologize, but the request timed out. Please try again."
	}
	return types.CompletionResult{
		Content:      content,
		FinishReason: types.FinishError,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func normalizeFinishReason(reason goopenai.FinishReason) types.FinishReason {
	switch reason {
	case goopenai.FinishReasonToolCalls, goopenai.FinishReasonFunctionCall:
		return types.FinishToolCalls
	case goopenai.FinishReasonLength:
		return types.FinishLength
	default:
		return types.FinishStop
	}
}

func toWireMessages(messages []types.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wire := goopenai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wire.ToolCalls = append(wire.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wire)
	}
	return out
}

func toWireTools(tools []types.ToolDefinition) []goopenai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]goopenai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
