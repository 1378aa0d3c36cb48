// Package errors provides structured errors with a failure code, a
// human-readable message, and an optional fix suggestion. The codes double
// as the probe error taxonomy: the poller maps them onto host states.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing failures.
const (
	// ErrConfig marks configuration problems, the only fatal kind.
	ErrConfig = "CONFIG"
	// ErrUnreachable marks network or connection failures.
	ErrUnreachable = "UNREACHABLE"
	// ErrAuth marks rejected credentials.
	ErrAuth = "AUTH"
	// ErrTimeout marks operations that exceeded their bound.
	ErrTimeout = "TIMEOUT"
	// ErrCommand marks remote commands that exited abnormally or produced no usable output.
	ErrCommand = "COMMAND"
	// ErrParse marks output that was present but unparseable.
	ErrParse = "PARSE"
)

// Error is a structured error with code, message, suggestion, and optional cause.
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapWithSuggestion wraps an existing error and adds a fix suggestion.
func WrapWithSuggestion(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Describe renders an error as a single human-readable line, suitable for
// embedding in a host's error_message field.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var swErr *Error
	if errors.As(err, &swErr) {
		if swErr.Cause != nil {
			return fmt.Sprintf("%s: %s", swErr.Message, swErr.Cause.Error())
		}
		return swErr.Message
	}
	return err.Error()
}

// CodeOf returns the code of a structured error, or empty string for
// nil/unstructured errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var swErr *Error
	if errors.As(err, &swErr) {
		return swErr.Code
	}
	return ""
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Classify categorizes a raw transport error into one of the taxonomy
// codes by inspecting the error text. The SSH library does not expose
// typed errors for these cases, so string matching is the reliable option.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	// Preserve an existing classification.
	if code := CodeOf(err); code != "" {
		return code
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return ErrTimeout
	}

	if strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "authentication failed") ||
		strings.Contains(errStr, "host key") {
		return ErrAuth
	}

	// Everything else at the transport level counts as unreachable:
	// refused, no route, network down, closed connections.
	return ErrUnreachable
}
