// Package errors provides the error taxonomy for the reconciliation engine.
// Every failure a single input row can cause is representable as a typed,
// recoverable error; only quota exhaustion and credential failure are
// permitted to stop a run early.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
var As = errors.As

// Sentinel errors for the reconciliation engine.
var (
	// ErrQuotaExhausted indicates the daily request budget has reached its
	// configured floor; no further requests may be attempted this run.
	ErrQuotaExhausted = errors.New("daily request quota exhausted")

	// ErrRetryExhausted indicates an operation failed again after its
	// single permitted retry.
	ErrRetryExhausted = errors.New("retry exhausted")

	// ErrInvalidIdentifier indicates an OCLC number or record ID that
	// failed validation.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrMalformedResponse indicates a response body that could not be
	// interpreted.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrCredential indicates the bearer credential could not be obtained
	// or refreshed.
	ErrCredential = errors.New("credential failure")

	// ErrNotFound indicates a requested record was not found.
	ErrNotFound = errors.New("not found")
)

// QuotaError reports a refusal to spend request budget below the floor.
type QuotaError struct {
	Remaining int
	Floor     int
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("not enough daily API requests remaining: %d left, floor is %d", e.Remaining, e.Floor)
}

// Is implements errors.Is support.
func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExhausted
}

// NewQuotaError creates a new QuotaError.
func NewQuotaError(remaining, floor int) *QuotaError {
	return &QuotaError{Remaining: remaining, Floor: floor}
}

// ValidationError represents an identifier or field validation failure.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s %q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidIdentifier
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents an error response from a remote service.
type APIError struct {
	Service    string // "alma" or "worldcat"
	StatusCode int
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retriable reports whether the error warrants the single permitted retry.
// Transport-level failures carry StatusCode 0; server errors are 5xx.
// Client errors (4xx) are terminal immediately.
func (e *APIError) Retriable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// NewAPIError creates a new APIError.
func NewAPIError(service string, statusCode int, endpoint, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// RetryError wraps the final error after the single permitted retry failed.
type RetryError struct {
	Service  string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetryError) Error() string {
	return fmt.Sprintf("%s request failed after %d attempts: %v", e.Service, e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *RetryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *RetryError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// AuthenticationError represents a credential fetch or refresh failure.
type AuthenticationError struct {
	Service string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error for %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredential
}

// BatchError attributes one failure to every item of a failed chunk.
// Batched reads are all-or-nothing, so each item in the chunk reports the
// same underlying error.
type BatchError struct {
	ChunkIndex int
	Size       int
	Err        error
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d items) failed: %v", e.ChunkIndex+1, e.Size, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// ParseError represents a response body that could not be interpreted.
type ParseError struct {
	Service string
	Format  string // "json" or "xml"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %s parse error: %s", e.Service, e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Key     string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("configuration error for %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Helper functions for error checking.

// IsQuotaExhausted checks if an error means the run must stop submitting work.
func IsQuotaExhausted(err error) bool {
	return errors.Is(err, ErrQuotaExhausted)
}

// IsRetryExhausted checks if an error is terminal for its item only.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// IsInvalidIdentifier checks if an error is an identifier validation failure.
func IsInvalidIdentifier(err error) bool {
	return errors.Is(err, ErrInvalidIdentifier)
}

// IsCredential checks if an error is a credential failure.
func IsCredential(err error) bool {
	return errors.Is(err, ErrCredential)
}

// Helper wrapping functions for common patterns.

// WrapParse wraps an error as a ParseError.
func WrapParse(service, format string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Service: service, Format: format, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError.
func WrapAPI(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
