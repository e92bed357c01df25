package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AuthError represents a client-facing authentication error. It never carries
// more than its category; internal detail belongs in the logs.
type AuthError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes exposed to callers.
const (
	InvalidCredentials = "invalid_credentials"
	MfaRequired        = "mfa_required"
	InvalidMfa         = "invalid_mfa"
	AccountLocked      = "account_locked"
	SessionExpired     = "session_expired"
	RateLimited        = "rate_limited"
	Unauthenticated    = "unauthenticated"
	InvalidRequest     = "invalid_request"
	ServerError        = "server_error"
)

var (
	ErrInvalidCredentials = &AuthError{Code: InvalidCredentials, Message: "invalid identity or password"}
	ErrMfaRequired        = &AuthError{Code: MfaRequired, Message: "a second factor is required"}
	ErrInvalidMfa         = &AuthError{Code: InvalidMfa, Message: "invalid second factor"}
	ErrAccountLocked      = &AuthError{Code: AccountLocked, Message: "too many failed attempts, try again later"}
	ErrSessionExpired     = &AuthError{Code: SessionExpired, Message: "session expired, please sign in again"}
	ErrRateLimited        = &AuthError{Code: RateLimited, Message: "too many requests"}
	ErrUnauthenticated    = &AuthError{Code: Unauthenticated, Message: "authentication required"}
	ErrServer             = &AuthError{Code: ServerError, Message: "internal server error"}

	ErrMfaAlreadyEnabled = &AuthError{Code: InvalidRequest, Message: "second factor is already enabled"}
	ErrMfaNotEnabled     = &AuthError{Code: InvalidRequest, Message: "second factor is not enabled"}
	ErrMfaSetupMissing   = &AuthError{Code: InvalidRequest, Message: "second factor setup has not been started"}
)

// NewInvalidRequest builds a 400-class error with a caller-safe description.
func NewInvalidRequest(description string) *AuthError {
	return &AuthError{
		Code:    InvalidRequest,
		Message: description,
	}
}

// AsAuthError returns the AuthError wrapped in err. Anything that is not an
// AuthError is reported as a generic server error.
func AsAuthError(err error) *AuthError {
	var authErr *AuthError
	if stderrors.As(err, &authErr) {
		return authErr
	}
	return ErrServer
}

// HTTPStatus maps an error to the HTTP status used on the wire.
func HTTPStatus(err error) int {
	switch AsAuthError(err).Code {
	case InvalidCredentials, MfaRequired, InvalidMfa, SessionExpired, Unauthenticated:
		return http.StatusUnauthorized
	case AccountLocked:
		return http.StatusLocked
	case RateLimited:
		return http.StatusTooManyRequests
	case InvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
