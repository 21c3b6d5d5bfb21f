// Package apierr defines the classified error type the HTTP layer translates
// into error envelopes, plus the status/message -> category mapping shared by
// response formatting and logging.
package apierr

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure that carries its own HTTP status and client-facing
// message(s). Anything else that escapes a handler is treated as an internal
// server error by the translator.
type Error struct {
	Status   int
	Message  string
	Messages []string // per-field validation messages; takes precedence over Message when set
	cause    error
}

// New creates a classified error with a single message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// WithMessages creates a classified error carrying a message list, typically
// one entry per invalid field.
func WithMessages(status int, messages []string) *Error {
	return &Error{Status: status, Messages: messages}
}

// Wrap attaches a cause without changing the client-facing message.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	msg := e.Text()
	if e.cause != nil {
		return fmt.Sprintf("%s (%s)", msg, e.cause)
	}
	return msg
}

// Text returns the joined client-facing message. Message lists join with
// ", " so categorization and logs see one string.
func (e *Error) Text() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, ", ")
	}
	if e.Message != "" {
		return e.Message
	}
	if s := http.StatusText(e.Status); s != "" {
		return s
	}
	return "Error"
}

// Common constructors, mirroring the statuses the categorizer maps exactly.

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func TooMany(message string) *Error      { return New(http.StatusTooManyRequests, message) }
func Unprocessable(message string) *Error {
	return New(http.StatusUnprocessableEntity, message)
}
func Internal(message string) *Error { return New(http.StatusInternalServerError, message) }

// Validation creates a 400 carrying one message per invalid field.
func Validation(messages ...string) *Error {
	return WithMessages(http.StatusBadRequest, messages)
}
