package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"mfa required", ErrMfaRequired, http.StatusUnauthorized},
		{"invalid mfa", ErrInvalidMfa, http.StatusUnauthorized},
		{"locked", ErrAccountLocked, http.StatusLocked},
		{"session expired", ErrSessionExpired, http.StatusUnauthorized},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"bad request", NewInvalidRequest("missing identity"), http.StatusBadRequest},
		{"wrapped", fmt.Errorf("login: %w", ErrAccountLocked), http.StatusLocked},
		{"infrastructure", stderrors.New("mongo: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestAsAuthError_HidesInfrastructureDetail(t *testing.T) {
	got := AsAuthError(stderrors.New("dial tcp 10.0.0.3:27017: i/o timeout"))
	assert.Equal(t, ServerError, got.Code)
	assert.NotContains(t, got.Message, "27017")
}

func TestSentinelsMatchWithErrorsIs(t *testing.T) {
	wrapped := fmt.Errorf("verify second factor: %w", ErrInvalidMfa)
	assert.True(t, stderrors.Is(wrapped, ErrInvalidMfa))
	assert.False(t, stderrors.Is(wrapped, ErrInvalidCredentials))
}
