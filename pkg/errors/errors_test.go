package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaErrorIs(t *testing.T) {
	err := NewQuotaError(4, 5)
	assert.True(t, Is(err, ErrQuotaExhausted))
	assert.True(t, IsQuotaExhausted(err))
	assert.Contains(t, err.Error(), "4 left, floor is 5")
}

func TestQuotaErrorWrapped(t *testing.T) {
	err := fmt.Errorf("dispatching batch: %w", NewQuotaError(10, 10))
	assert.True(t, IsQuotaExhausted(err))
}

func TestValidationErrorIs(t *testing.T) {
	err := NewValidationError("OCLC number", "abc", "contains non-digit characters")
	assert.True(t, IsInvalidIdentifier(err))
	assert.Contains(t, err.Error(), `"abc"`)
}

func TestAPIErrorRetriable(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retriable bool
	}{
		{"transport failure", 0, true},
		{"server error", 500, true},
		{"bad gateway", 502, true},
		{"not found", 404, false},
		{"bad request", 400, false},
		{"too many requests", 429, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAPIError("alma", tt.status, "/bibs", "boom")
			assert.Equal(t, tt.retriable, err.Retriable())
		})
	}
}

func TestRetryErrorIs(t *testing.T) {
	inner := NewAPIError("worldcat", 503, "/search", "unavailable")
	err := &RetryError{Service: "worldcat", Attempts: 2, Err: inner}

	assert.True(t, IsRetryExhausted(err))
	assert.False(t, IsQuotaExhausted(err))

	var apiErr *APIError
	assert.True(t, As(err, &apiErr))
	assert.Equal(t, 503, apiErr.StatusCode)
}

func TestAuthenticationErrorIs(t *testing.T) {
	err := &AuthenticationError{Service: "worldcat", Message: "token refresh rejected"}
	assert.True(t, IsCredential(err))
}

func TestBatchErrorUnwrap(t *testing.T) {
	inner := NewAPIError("alma", 500, "/bibs", "server error")
	err := &BatchError{ChunkIndex: 1, Size: 100, Err: inner}

	assert.Contains(t, err.Error(), "batch 2 (100 items)")

	var apiErr *APIError
	assert.True(t, As(err, &apiErr))
}

func TestParseErrorIs(t *testing.T) {
	err := WrapParse("worldcat", "json", New("unexpected end of input"))
	assert.True(t, Is(err, ErrMalformedResponse))
}

func TestWrapHelpersNilPassthrough(t *testing.T) {
	assert.NoError(t, WrapParse("alma", "xml", nil))
	assert.NoError(t, WrapAPI("alma", 500, nil))
}
