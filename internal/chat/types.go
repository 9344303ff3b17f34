// Package chat defines the message, event, and configuration types shared
// across the request-shaping pipeline, plus validation and sanitization of
// inbound conversations.
package chat

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Event types for the SSE wire protocol.
const (
	EventContent = "content"
	EventDone    = "done"
	EventError   = "error"
)

// StreamEvent is the wire-level contract between the chat endpoint and the
// client. Exactly one done or error event terminates a stream, never both.
type StreamEvent struct {
	Type  string `json:"type"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// Supported knowledge-base languages.
const (
	LangEN = "en"
	LangFR = "fr"
)

// PromptConfig controls context retrieval and prompt assembly for one
// request. It is a pure value object; per-request overrides are merged onto
// server defaults with Merge.
type PromptConfig struct {
	MaxContextEntries  int
	RelevanceThreshold float64
	Language           string
	IncludeGuardrails  bool
	MaxHistoryTurns    int
	MaxMessageLength   int
}

// Merge returns c with the non-zero override fields applied. Language is
// only accepted when it is a supported code.
func (c PromptConfig) Merge(language string, guardrails *bool) PromptConfig {
	out := c
	if language == LangEN || language == LangFR {
		out.Language = language
	}
	if guardrails != nil {
		out.IncludeGuardrails = *guardrails
	}
	return out
}
