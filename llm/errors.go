package llm

import (
	"errors"
	"fmt"
)

// Error represents a failure while requesting or decoding a completion.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	StatusCode int    // set for invalid_response_status errors
	Raw        string // offending response or candidate text, when available
	Cause      error  // underlying decode error, when available
}

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeNoProvider     ErrorType = "no_provider"
	ErrorTypeResponseStatus ErrorType = "invalid_response_status"
	ErrorTypeResponseFormat ErrorType = "invalid_response_format"
	ErrorTypeResponseData   ErrorType = "invalid_response_data"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsNoProviderError checks if an error reports that no provider was configured.
func IsNoProviderError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeNoProvider
	}
	return false
}

// IsResponseStatusError checks if an error reports a non-2xx response status.
func IsResponseStatusError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeResponseStatus
	}
	return false
}

// IsResponseFormatError checks if an error reports undecodable response JSON.
func IsResponseFormatError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeResponseFormat
	}
	return false
}

// IsResponseDataError checks if an error reports a malformed extracted candidate.
func IsResponseDataError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeResponseData
	}
	return false
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// ExtractRaw extracts the offending response text from an error, if any.
func ExtractRaw(err error) string {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Raw
	}
	return ""
}

// NewNoProviderError creates an error for a call issued with no provider
// configured on the session or its client.
func NewNoProviderError() *Error {
	return &Error{
		Type:    ErrorTypeNoProvider,
		Message: "no provider configured",
	}
}

// NewResponseStatusError creates an error for a non-2xx response status.
// Rate limits and server-side failures are marked retryable.
func NewResponseStatusError(statusCode int, body string) *Error {
	return &Error{
		Type:       ErrorTypeResponseStatus,
		Message:    fmt.Sprintf("unexpected response status %d", statusCode),
		Retryable:  statusCode == 429 || statusCode >= 500,
		StatusCode: statusCode,
		Raw:        body,
	}
}

// NewResponseFormatError creates an error for response text that could not
// be resolved into valid JSON for the target type. raw carries the text
// that failed, either the full response or the extracted candidate.
func NewResponseFormatError(message, raw string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeResponseFormat,
		Message: message,
		Raw:     raw,
		Cause:   cause,
	}
}

// NewResponseDataError creates an error for an extracted candidate whose
// bytes are not decodable text.
func NewResponseDataError(message string) *Error {
	return &Error{
		Type:    ErrorTypeResponseData,
		Message: message,
	}
}
