// Package errors provides the standardized error taxonomy shared by the gateway,
// the coaching operations and the configuration loader.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Client input
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodePayloadTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"

	// Provider
	ErrCodeUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrCodeUpstreamTimeout   ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamMalformed ErrorCode = "UPSTREAM_MALFORMED"

	// Process
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
)

// Sentinels used by the provider layer and the coaching operations. They are
// wrapped with %w and classified with errors.Is.
var (
	ErrProviderTimeout = errors.New("PROVIDER_TIMEOUT")
	ErrProviderFailed  = errors.New("PROVIDER_FAILED")
	ErrMalformedOutput = errors.New("PROVIDER_MALFORMED_OUTPUT")
)

// FieldError is a single field-level validation problem.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode    `json:"code"`
	Message   string       `json:"message"`
	Details   string       `json:"details,omitempty"`
	Retryable bool         `json:"retryable"`
	Fields    []FieldError `json:"fields,omitempty"`
	Timestamp time.Time    `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on sentinels.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// PublicError is the body returned to HTTP clients. It never carries Details.
type PublicError struct {
	Code      ErrorCode    `json:"code"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// Public returns the client-safe view of the error.
func (e *StandardError) Public(requestID string) PublicError {
	return PublicError{
		Code:      e.Code,
		Message:   e.Message,
		Fields:    e.Fields,
		RequestID: requestID,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable client input error.
func NewValidationError(message string, fields ...FieldError) *StandardError {
	if message == "" {
		message = "Request validation failed"
	}
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   message,
		Retryable: false,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadTooLargeError creates an error for bodies over the configured limit.
func NewPayloadTooLargeError(limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadTooLarge,
		Message:   fmt.Sprintf("Request body exceeds %d bytes", limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedMediaTypeError creates an error for audio in a format we do not forward.
func NewUnsupportedMediaTypeError(mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedMediaType,
		Message:   fmt.Sprintf("Unsupported audio type %q", mimeType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamError creates a retryable provider failure. The cause is kept for
// logging only.
func NewUpstreamError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstream,
		Message:   "The AI provider could not complete the request",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUpstreamTimeoutError creates a retryable provider timeout.
func NewUpstreamTimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   "The AI provider did not respond in time",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewUpstreamMalformedError creates an error for provider output we cannot use.
func NewUpstreamMalformedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamMalformed,
		Message:   "The AI provider returned an unusable response",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewConfigurationError creates the fail-fast startup error.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps anything that fell through classification.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 3. Classification
// ==========================

// FromProviderError maps an error returned by the provider layer onto the
// taxonomy. StandardErrors pass through untouched.
func FromProviderError(operation string, err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	switch {
	case errors.Is(err, ErrProviderTimeout):
		return NewUpstreamTimeoutError(operation, err)
	case errors.Is(err, ErrMalformedOutput):
		return NewUpstreamMalformedError(operation, err)
	default:
		return NewUpstreamError(operation, err)
	}
}

// HTTPStatus returns the response status for an error code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case ErrCodeUpstream, ErrCodeUpstreamMalformed:
		return http.StatusBadGateway
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsConfigurationError reports whether err is a startup configuration failure.
func IsConfigurationError(err error) bool {
	var stdErr *StandardError
	return errors.As(err, &stdErr) && stdErr.Code == ErrCodeConfiguration
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidation, ErrCodePayloadTooLarge, ErrCodeUnsupportedMediaType:
		return "CLIENT"
	case ErrCodeUpstream, ErrCodeUpstreamTimeout, ErrCodeUpstreamMalformed:
		return "UPSTREAM"
	case ErrCodeConfiguration:
		return "CONFIGURATION"
	default:
		return "OTHER"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
