package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// Code classifies a provider failure for the user-facing error taxonomy.
type Code string

const (
	CodeMissingCredential Code = "MISSING_CREDENTIAL"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeTimeout           Code = "TIMEOUT"
	CodeUpstreamError     Code = "UPSTREAM_ERROR"
	CodeConnectionError   Code = "CONNECTION_ERROR"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeUnknown           Code = "UNKNOWN"
)

// Error is a classified provider failure. Message is safe to put on the
// wire: it never carries credentials, upstream response bodies, or stack
// traces.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Classify maps an arbitrary error from an upstream call onto the taxonomy.
// Already-classified errors pass through unchanged. Pure: same error in,
// same classification out.
func Classify(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "upstream request timed out", Retryable: true}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: CodeConnectionError, Message: "request cancelled", Retryable: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Code: CodeTimeout, Message: "upstream request timed out", Retryable: true}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Code: CodeConnectionError, Message: "could not reach the upstream provider", Retryable: true}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Code: CodeConnectionError, Message: "could not reach the upstream provider", Retryable: true}
	}

	return &Error{Code: CodeUnknown, Message: "unexpected upstream failure", Retryable: false}
}

// classifyStatus maps a non-2xx upstream HTTP status onto the taxonomy. The
// response body is never included in the message.
func classifyStatus(status int) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Code: CodeMissingCredential, Message: "upstream rejected the API credential", Retryable: false}
	case status == http.StatusTooManyRequests:
		return &Error{Code: CodeRateLimited, Message: "upstream provider is rate limiting requests", Retryable: true}
	case status == http.StatusBadRequest:
		return &Error{Code: CodeInvalidInput, Message: "upstream rejected the request payload", Retryable: false}
	case status >= 500:
		return &Error{Code: CodeUpstreamError, Message: fmt.Sprintf("upstream provider error (HTTP %d)", status), Retryable: true}
	default:
		return &Error{Code: CodeUpstreamError, Message: fmt.Sprintf("unexpected upstream status %d", status), Retryable: false}
	}
}
