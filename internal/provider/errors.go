package provider

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy
type ErrorCategory string

const (
	// ErrorConfiguration indicates the API token or secret is missing
	ErrorConfiguration ErrorCategory = "configuration"

	// ErrorUpstream indicates the provider answered with a non-2xx status
	ErrorUpstream ErrorCategory = "upstream"

	// ErrorTransport indicates the request never produced a response (network, timeout, cancellation)
	ErrorTransport ErrorCategory = "transport"

	// ErrorBadData indicates the provider returned a body that is not valid JSON
	ErrorBadData ErrorCategory = "bad_data"
)

// ErrNotConfigured is the cause of every configuration error.
var ErrNotConfigured = errors.New("api credentials not configured")

// Error wraps provider failures with normalized categorization
type Error struct {
	Category ErrorCategory
	Op       string // "parameters" or "evaluations"
	Status   int    // upstream status, set for ErrorUpstream only
	Message  string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("provider %s [%s]: %s", e.Op, e.Category, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap supports error unwrapping
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{Category: category, Op: op, Message: message, Err: underlying}
}

// Category extracts the error category, defaulting to transport for foreign errors.
func Category(err error) ErrorCategory {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorTransport
}

// IsConfiguration reports whether err stems from missing credentials.
func IsConfiguration(err error) bool {
	return Category(err) == ErrorConfiguration
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return 0
}
