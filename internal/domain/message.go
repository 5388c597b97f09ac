package domain

import (
	"encoding/json"
	"strings"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrorPrefix marks the content of an assistant message produced by a failed turn.
const ErrorPrefix = "Error: "

// Message is a single entry in the conversation history.
type Message struct {
	ID           string               `json:"id"`
	Role         Role                 `json:"role"`
	Content      string               `json:"content"`
	SessionID    string               `json:"sessionId,omitempty"`
	Reasoning    string               `json:"reasoning,omitempty"`
	UserQuery    string               `json:"userQuery,omitempty"`
	Metadata     *ExecutionMetadata   `json:"metadata,omitempty"`
	Scratchpad   map[string]any       `json:"scratchpad,omitempty"`
	ToolResponse *ToolResponseSummary `json:"toolResponse,omitempty"`
	IsError      bool                 `json:"isError,omitempty"`
}

// Reviewable reports whether the message can receive like/dislike feedback.
// Errors carry no session id and are never reviewable.
func (m Message) Reviewable() bool {
	return m.Role == RoleAssistant && !m.IsError && m.SessionID != ""
}

// ErrorText returns the backend error text of an error message.
func (m Message) ErrorText() string {
	return strings.TrimPrefix(m.Content, ErrorPrefix)
}

// Clone returns a deep copy so renderers never share maps with the reducer.
func (m Message) Clone() Message {
	out := m
	if m.Metadata != nil {
		md := *m.Metadata
		out.Metadata = &md
	}
	if m.Scratchpad != nil {
		out.Scratchpad = cloneMap(m.Scratchpad)
	}
	if m.ToolResponse != nil {
		tr := *m.ToolResponse
		tr.ToolExecutions = append([]ToolExecution(nil), m.ToolResponse.ToolExecutions...)
		out.ToolResponse = &tr
	}
	return out
}

// ExecutionMetadata is reported by the backend at the end of a turn.
type ExecutionMetadata struct {
	ExecutionTimeSeconds *float64 `json:"execution_time_seconds,omitempty"`
	TotalTokens          *int     `json:"total_tokens,omitempty"`
	InputTokens          *int     `json:"input_tokens,omitempty"`
	OutputTokens         *int     `json:"output_tokens,omitempty"`
}

// ToolResponseSummary traces the tool executions behind an answer.
type ToolResponseSummary struct {
	TotalExecutions    int             `json:"total_executions"`
	ConversationLength int             `json:"conversation_length"`
	ToolExecutions     []ToolExecution `json:"tool_executions"`
}

// ToolExecution is one tool invocation and its result.
type ToolExecution struct {
	ToolCall         ToolCall         `json:"tool_call"`
	ToolResult       ToolResult       `json:"tool_result"`
	ResponseMetadata ResponseMetadata `json:"response_metadata"`
	AIContent        string           `json:"ai_content"`
	MessageIndex     int              `json:"message_index"`
	MessageType      string           `json:"message_type"`
	MessageID        string           `json:"message_id"`
}

// ToolCall is the model's request to run a tool.
type ToolCall struct {
	Name string          `json:"name"`
	ID   string          `json:"id"`
	Args json.RawMessage `json:"args,omitempty"`
}

// ToolResult is what the tool returned.
type ToolResult struct {
	Status       string `json:"status"`
	Content      string `json:"content"`
	Name         string `json:"name"`
	MessageID    string `json:"message_id"`
	ToolCallID   string `json:"tool_call_id"`
	MessageIndex int    `json:"message_index"`
}

// ResponseMetadata describes the model call that issued the tool call.
type ResponseMetadata struct {
	ModelName    string     `json:"model_name"`
	FinishReason string     `json:"finish_reason"`
	TokenUsage   TokenUsage `json:"token_usage"`
}

// TokenUsage is the per-call token and timing breakdown.
type TokenUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TotalTime        float64 `json:"total_time"`
	PromptTime       float64 `json:"prompt_time"`
	CompletionTime   float64 `json:"completion_time"`
	QueueTime        float64 `json:"queue_time"`
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
