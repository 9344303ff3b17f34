// Package provider normalizes streaming chat completion backends (Groq,
// Gemini, local Ollama) behind a single adapter interface: a finite,
// non-restartable pull sequence of text chunks, with a shared error taxonomy
// and bounded retry on transient failures.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nmoreau/askme/internal/chat"
)

// Adapter is the boundary abstraction over one upstream LLM API.
type Adapter interface {
	// Name returns the provider identifier, e.g. "groq".
	Name() string
	// StreamChat opens a streaming completion for messages. The returned
	// stream is finite and not restartable; retrying requires a fresh call.
	// Validation failures return *Error with CodeInvalidInput before any
	// network activity.
	StreamChat(ctx context.Context, messages []chat.Message) (Stream, error)
}

// Stream yields the provider's incremental text deltas in arrival order.
// Recv returns io.EOF after the final chunk. Callers must Close the stream
// to release the underlying connection, drained or not.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Known provider names, used for config-driven selection.
const (
	NameGroq   = "groq"
	NameGemini = "gemini"
	NameOllama = "ollama"
)

// Settings configures a concrete adapter.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds connecting and waiting for response headers. Body
	// reads are governed by the caller's context, so a healthy stream is
	// never cut off for being slow to finish.
	Timeout time.Duration
	// MaxRetries is the attempt ceiling for transient open failures.
	MaxRetries int
	// InitialBackoff is doubled on each retry.
	InitialBackoff time.Duration
	// MaxMessageLength is the per-message content limit checked pre-flight.
	MaxMessageLength int
}

func (s Settings) withDefaults() Settings {
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 3
	}
	if s.InitialBackoff <= 0 {
		s.InitialBackoff = 500 * time.Millisecond
	}
	if s.MaxMessageLength <= 0 {
		s.MaxMessageLength = 4000
	}
	return s
}

// New constructs the adapter selected by name. Groq and Gemini require an
// API key; a missing key is reported as CodeMissingCredential so the caller
// can surface it without retrying.
func New(name string, s Settings) (Adapter, error) {
	switch strings.ToLower(name) {
	case NameGroq:
		return newGroq(s)
	case NameGemini:
		return newGemini(s)
	case NameOllama:
		return newOllama(s)
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// prepareMessages sanitizes every message and enforces the conversational
// invariants. Runs before any network call on every adapter.
func prepareMessages(messages []chat.Message, maxLen int) ([]chat.Message, error) {
	out := make([]chat.Message, len(messages))
	for i, m := range messages {
		out[i] = chat.Message{Role: m.Role, Content: chat.Sanitize(m.Content)}
	}
	if err := chat.ValidateMessages(out, maxLen); err != nil {
		return nil, &Error{Code: CodeInvalidInput, Message: err.Error()}
	}
	return out, nil
}

// newHTTPClient returns the client adapters share. The header timeout
// covers connect through first response byte; there is no whole-request
// deadline, so streams are not cut mid-read by a transport-level limit.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: headerTimeout,
		},
	}
}

// drainAndClose consumes at most a small tail of the body before closing so
// the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	io.CopyN(io.Discard, body, 4096)
	body.Close()
}
