package auth

import (
	"errors"

	"boardkit-api/internal/http/httperr"
)

// AuthFailureReason is the log-friendly category of a rejected credential.
type AuthFailureReason string

const (
	AuthFailureMissingAuthorization AuthFailureReason = "missing_authorization"
	AuthFailureInvalidScheme        AuthFailureReason = "invalid_scheme"
	AuthFailureInvalidSignature     AuthFailureReason = "invalid_signature"
	AuthFailureInvalidIssuer        AuthFailureReason = "invalid_issuer"
	AuthFailureInvalidAudience      AuthFailureReason = "invalid_audience"
	AuthFailureTokenExpired         AuthFailureReason = "token_expired"
	AuthFailureInvalidClaims        AuthFailureReason = "invalid_claims"
	AuthFailureInvalidActor         AuthFailureReason = "invalid_actor"
	AuthFailureUnknown              AuthFailureReason = "unknown"
)

// reasonCodes maps a failure reason to the 401 body code. Reasons not listed
// answer INVALID_TOKEN so clients cannot probe validator internals.
var reasonCodes = map[AuthFailureReason]string{
	AuthFailureMissingAuthorization: httperr.ErrCodeMissingAuthorization,
	AuthFailureInvalidScheme:        httperr.ErrCodeInvalidScheme,
	AuthFailureInvalidSignature:     httperr.ErrCodeInvalidSignature,
	AuthFailureTokenExpired:         httperr.ErrCodeTokenExpired,
	AuthFailureInvalidIssuer:        httperr.ErrCodeInvalidIssuer,
	AuthFailureInvalidAudience:      httperr.ErrCodeInvalidAudience,
}

// AuthError carries the reason a token was rejected.
type AuthError struct {
	Reason  AuthFailureReason
	Message string
	Err     error
}

func NewAuthError(reason AuthFailureReason, message string, err error) *AuthError {
	return &AuthError{Reason: reason, Message: message, Err: err}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Code is the error code written in the 401 response.
func (e *AuthError) Code() string {
	if e == nil {
		return httperr.ErrCodeInvalidToken
	}
	if code, ok := reasonCodes[e.Reason]; ok {
		return code
	}
	return httperr.ErrCodeInvalidToken
}

// IsAuthError unwraps err to an *AuthError.
func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// maskToken keeps a short prefix of a credential for log correlation.
func maskToken(token string) string {
	const keep = 12
	if len(token) <= keep {
		return "***"
	}
	return token[:keep] + "..."
}
