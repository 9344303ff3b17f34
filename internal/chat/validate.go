package chat

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation error codes surfaced to clients as HTTP 400 bodies.
const (
	CodeInvalidPayload      = "INVALID_PAYLOAD"
	CodeInvalidConversation = "INVALID_CONVERSATION"
)

// ValidationError describes a conversation that failed schema or invariant
// checks. It is never retried; the client must fix the request.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ValidateMessages enforces the conversational invariants on an externally
// supplied message list: non-empty, every role known, every content length
// in [1, maxLen] runes, and the last message authored by the user. The
// system message is exempt from the length cap: it is assembled internally
// and grows with the retrieved context, not with caller input.
func ValidateMessages(msgs []Message, maxLen int) error {
	if len(msgs) == 0 {
		return &ValidationError{Code: CodeInvalidPayload, Message: "messages must not be empty"}
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return &ValidationError{
				Code:    CodeInvalidPayload,
				Message: fmt.Sprintf("messages[%d]: unknown role %q", i, m.Role),
			}
		}
		if strings.TrimSpace(m.Content) == "" {
			return &ValidationError{
				Code:    CodeInvalidPayload,
				Message: fmt.Sprintf("messages[%d]: content must not be empty", i),
			}
		}
		if n := utf8.RuneCountInString(m.Content); m.Role != RoleSystem && n > maxLen {
			return &ValidationError{
				Code:    CodeInvalidPayload,
				Message: fmt.Sprintf("messages[%d]: content length %d exceeds limit %d", i, n, maxLen),
			}
		}
	}
	if msgs[len(msgs)-1].Role != RoleUser {
		return &ValidationError{
			Code:    CodeInvalidConversation,
			Message: "last message must have role \"user\"",
		}
	}
	return nil
}

// Sanitize strips control characters (0x00-0x08, 0x0B-0x0C, 0x0E-0x1F, 0x7F)
// and trims surrounding whitespace. Invisible control bytes are a prompt
// injection vector and pollute provider-side logs.
func Sanitize(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 0x00 && r <= 0x08:
			return -1
		case r == 0x0B || r == 0x0C:
			return -1
		case r >= 0x0E && r <= 0x1F:
			return -1
		case r == 0x7F:
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(out)
}
