// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotConnected     = errors.New("stream not connected")
	ErrStreamDisabled   = errors.New("stream disabled")
	ErrPollerStopped    = errors.New("poller stopped")
	ErrNoSnapshot       = errors.New("no snapshot available")
	ErrUnknownAction    = errors.New("action not declared on alert")
	ErrEmptyAlertID     = errors.New("alert id missing")
	ErrInvalidRating    = errors.New("invalid feedback rating")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrJournalClosed    = errors.New("journal closed")
	ErrUpstreamGateOpen = errors.New("upstream circuit open")
)

// TransportError represents a network-level failure on the stream socket
// or a polling fetch. It is recovered locally (reconnect/retry) and never
// fatal to the session.
type TransportError struct {
	Op       string // "dial", "read", "fetch"
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error [%s] %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a new TransportError.
func NewTransportError(op, endpoint string, err error) *TransportError {
	return &TransportError{Op: op, Endpoint: endpoint, Err: err}
}

// ParseError represents a malformed alert payload. The payload is dropped
// and logged; the connection and other alerts are unaffected.
type ParseError struct {
	Source  string // "stream", "poll"
	Payload string // truncated copy for logging
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error [%s]: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError, truncating the payload copy.
func NewParseError(source string, payload []byte, err error) *ParseError {
	const maxPayload = 256
	p := string(payload)
	if len(p) > maxPayload {
		p = p[:maxPayload]
	}
	return &ParseError{Source: source, Payload: p, Err: err}
}

// UpstreamError represents a non-success HTTP status from the polling,
// preference, or action endpoints.
type UpstreamError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error [%d] %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// NewUpstreamError creates a new UpstreamError, truncating the body copy.
func NewUpstreamError(statusCode int, endpoint string, body []byte) *UpstreamError {
	const maxBody = 512
	b := string(body)
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return &UpstreamError{StatusCode: statusCode, Endpoint: endpoint, Body: b}
}

// ValidationError represents a validation error, e.g. a malformed
// quiet-hours window. Rejected at the point preferences are set; previously
// valid state is left untouched.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
