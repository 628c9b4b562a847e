package types

import (
	"encoding/json"
	"time"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in a conversation.
// This is the canonical message type used throughout the system.
// A conversation is an ordered []Message; components only ever append.
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant", "tool"
	Content string `json:"content"` // Message content

	// Tool invocations (for assistant messages that call tools)
	ToolCalls []MessageToolCall `json:"tool_calls,omitempty"`

	// Tool result (for tool role messages)
	// When Role="tool", this correlates the result to its originating call.
	ToolResult *MessageToolResult `json:"tool_result,omitempty"`

	// Metadata for observability and tracking
	Timestamp time.Time `json:"timestamp,omitempty"`  // When the message was created
	LatencyMs int64     `json:"latency_ms,omitempty"` // Time taken to generate (for assistant messages)
	Usage     *Usage    `json:"usage,omitempty"`      // Token usage for the call that produced this message
}

// MessageToolCall represents a request to call a tool within a Message.
// The Args field contains the JSON-encoded arguments for the tool. Backends
// deliver arguments as raw text; empty text means an empty argument mapping.
type MessageToolCall struct {
	ID   string          `json:"id"`   // Unique identifier for this tool call
	Name string          `json:"name"` // Name of the tool to invoke
	Args json.RawMessage `json:"args"` // JSON-encoded tool arguments
}

// ArgsMap interprets the raw argument payload as a structured mapping.
// Empty or absent arguments yield an empty map. Malformed payloads return
// an error so callers can surface it as a tool-level failure.
func (c MessageToolCall) ArgsMap() (map[string]any, error) {
	if len(c.Args) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Args, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// MessageToolResult represents the result of a tool execution in a Message.
// When embedded in Message, the Message.Role should be "tool".
type MessageToolResult struct {
	ID        string `json:"id"`              // References the MessageToolCall.ID that triggered this result
	Name      string `json:"name"`            // Tool name that was executed
	Content   string `json:"content"`         // Result content or error message
	Error     string `json:"error,omitempty"` // Error message if tool execution failed
	LatencyMs int64  `json:"latency_ms"`      // Tool execution latency in milliseconds
}

// ToolDef represents a tool definition that can be provided to an LLM.
// The Parameters field uses JSON Schema format.
type ToolDef struct {
	Name        string          `json:"name"`        // Unique tool name
	Description string          `json:"description"` // Human-readable description of what the tool does
	Parameters  json.RawMessage `json:"parameters"`  // JSON Schema for tool arguments
}

// Usage tracks token consumption for LLM operations. Counters accumulate
// additively across every backend call in a loop invocation.
type Usage struct {
	Prompt     int `json:"prompt"`     // Prompt (input) tokens consumed
	Completion int `json:"completion"` // Completion (output) tokens generated
	Total      int `json:"total"`      // Total tokens as reported by the backend
}

// Add accumulates another Usage into u.
func (u *Usage) Add(other Usage) {
	u.Prompt += other.Prompt
	u.Completion += other.Completion
	u.Total += other.Total
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// ToolMessage builds a tool-role message carrying the result of the tool
// call identified by callID.
func ToolMessage(callID, name, content string, errText string) Message {
	return Message{
		Role:      RoleTool,
		Content:   content,
		Timestamp: time.Now(),
		ToolResult: &MessageToolResult{
			ID:      callID,
			Name:    name,
			Content: content,
			Error:   errText,
		},
	}
}
