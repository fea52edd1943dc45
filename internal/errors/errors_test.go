package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeDatabase, "Database error", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DATABASE_ERROR")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAuthExpiredNamesProvider(t *testing.T) {
	err := AuthExpired("etsy")

	assert.Equal(t, ErrCodeAuthExpired, err.Code)
	assert.Contains(t, err.Message, "etsy")
	assert.Contains(t, err.Message, "reconnect")
}

func TestProviderRequestFailedCarriesDiagnostics(t *testing.T) {
	err := ProviderRequestFailed("etsy", 503, `{"error":"down"}`)

	assert.Equal(t, ErrCodeProvider, err.Code)
	details, ok := err.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 503, details["status"])
	assert.Equal(t, `{"error":"down"}`, details["body"])
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	inner := NotFound("Listing")
	wrapped := Wrap(ErrCodeInternal, "outer", inner)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInternal, appErr.Code)

	assert.False(t, IsAppError(errors.New("plain")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, GetCode(NotFound("User")))
	assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
}
