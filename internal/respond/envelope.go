package respond

import (
	"time"

	"github.com/keithlinneman/linnemanlabs-api/internal/apierr"
)

// SuccessEnvelope is the wire shape of every successful response.
type SuccessEnvelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"statusCode"`
	Meta       SuccessMeta `json:"meta"`
	Data       any         `json:"data"`
}

// SuccessMeta carries correlation and timing metadata alongside the payload.
// Duration is milliseconds measured from the correlation middleware's stamp.
type SuccessMeta struct {
	RequestID     string    `json:"requestId"`
	CorrelationID string    `json:"correlationId"`
	Path          string    `json:"path"`
	Method        string    `json:"method"`
	Lang          string    `json:"lang"`
	IPv4          string    `json:"ipv4"`
	IPv6          string    `json:"ipv6"`
	Duration      int64     `json:"duration"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// ErrorEnvelope is the wire shape of every failed response.
type ErrorEnvelope struct {
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode"`
	Meta       ErrorMeta `json:"meta"`
}

// ErrorMeta mirrors SuccessMeta for failures. Message is a string, or the
// original string slice for multi-message validation failures. Errors is
// present only for VALIDATION failures carrying a message list.
type ErrorMeta struct {
	RequestID     string              `json:"requestId"`
	CorrelationID string              `json:"correlationId"`
	Path          string              `json:"path"`
	Method        string              `json:"method"`
	Lang          string              `json:"lang"`
	ErrorCategory apierr.Category     `json:"errorCategory"`
	Message       any                 `json:"message"`
	Timestamp     time.Time           `json:"timestamp"`
	IPv4          string              `json:"ipv4"`
	IPv6          string              `json:"ipv6"`
	Errors        map[string][]string `json:"errors,omitempty"`
}
