package types

// Message roles replayed verbatim to the completion service.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one turn of a live conversation. Ordered sequences of these
// are what the completion service sees; a tool-role message always follows
// an assistant message whose ToolCalls contains the matching ID.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a function invocation requested by the model. Arguments is the
// raw JSON string from the wire; the orchestrator parses it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes one callable function advertised to the model.
// Parameters is a JSON-schema shaped document.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// ToolResult is the outcome of executing one tool call. It is always
// produced, success or not, so the message protocol never breaks on a tool
// failure.
type ToolResult struct {
	Success             bool   `json:"success"`
	Problem             string `json:"problem"`
	Answer              string `json:"answer,omitempty"`
	Steps               string `json:"steps,omitempty"`
	InputInterpretation string `json:"input_interpretation,omitempty"`
	SolutionSummary     string `json:"solution_summary,omitempty"`
	Error               string `json:"error,omitempty"`
}

type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishError     FinishReason = "error"
)

// CompletionResult is the normalized first choice of an upstream completion.
// Transport failures surface here as FinishError with apologetic content,
// never as an error value.
type CompletionResult struct {
	Content      string       `json:"content"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`
	FinishReason FinishReason `json:"finish_reason"`
}

// SimilarityMatch flags the current question as a repeat or near-repeat of a
// recent one. Computed per turn, surfaced to the caller, never persisted.
type SimilarityMatch struct {
	Question   string  `json:"question"`
	Similarity float64 `json:"similarity"`
	Note       string  `json:"note"`
}
