package loginpage_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MamBoota/LoginPage"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
		{
			name:     "api error",
			err:      loginpage.NewAPIError(loginpage.MessageInvalidCredentials),
			expected: loginpage.MessageInvalidCredentials,
		},
		{
			name:     "wrapped api error",
			err:      fmt.Errorf("login: %w", loginpage.NewAPIError(loginpage.MessageInvalidCode)),
			expected: loginpage.MessageInvalidCode,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: "boom",
		},
		{
			name:     "blank message falls back",
			err:      errors.New("  "),
			expected: loginpage.DefaultErrorMessage,
		},
		{
			name:     "empty api error falls back",
			err:      loginpage.NewAPIError(" "),
			expected: loginpage.DefaultErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, loginpage.ErrorMessage(tt.err))
		})
	}
}

func TestIsNetworkError(t *testing.T) {
	assert.True(t, loginpage.IsNetworkError(loginpage.NewNetworkError(nil)))
	assert.True(t, loginpage.IsNetworkError(loginpage.NewNetworkError(errors.New("connection refused"))))
	assert.True(t, loginpage.IsNetworkError(fmt.Errorf("resend: %w", loginpage.NewNetworkError(nil))))

	assert.False(t, loginpage.IsNetworkError(loginpage.NewAPIError(loginpage.MessageNetworkError)), "message text is not a signal")
	assert.False(t, loginpage.IsNetworkError(errors.New(loginpage.MessageNetworkError)))
	assert.False(t, loginpage.IsNetworkError(loginpage.NewAPIError(loginpage.MessageInvalidCode)))
	assert.False(t, loginpage.IsNetworkError(nil))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, loginpage.StatusCode(loginpage.NewAPIError(loginpage.MessageInvalidCode)))
	assert.Equal(t, http.StatusServiceUnavailable, loginpage.StatusCode(loginpage.NewNetworkError(nil)))
	assert.Equal(t, http.StatusTooManyRequests, loginpage.StatusCode(
		fmt.Errorf("login: %w", loginpage.NewAPIErrorWithStatus("Slow down", http.StatusTooManyRequests)),
	))
	assert.Equal(t, http.StatusBadRequest, loginpage.StatusCode(loginpage.ErrInvalidTransition))
	assert.Zero(t, loginpage.StatusCode(errors.New("boom")))
	assert.Zero(t, loginpage.StatusCode(nil))
}
