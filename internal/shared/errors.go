package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrConfiguration      = fmt.Errorf("configuration error")

	// Authentication errors
	ErrNotAuthenticated        = fmt.Errorf("not authenticated")
	ErrAuthenticationCancelled = fmt.Errorf("authentication cancelled")
	ErrTokenExchangeFailed     = fmt.Errorf("token exchange failed")
	ErrSessionExpired          = fmt.Errorf("session expired")
	ErrTimeout                 = fmt.Errorf("operation timed out")

	// API and service errors
	ErrNetwork            = fmt.Errorf("network error")
	ErrRemote             = fmt.Errorf("remote API error")
	ErrDecoding           = fmt.Errorf("failed to decode response")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// TokenExchangeError reports a failed authorization-code exchange.
//
// StatusCode is zero when no HTTP response was received.
type TokenExchangeError struct {
	StatusCode int
	Err        error
}

func (e *TokenExchangeError) Error() string {
	msg := ErrTokenExchangeFailed.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TokenExchangeError) Is(target error) bool { return target == ErrTokenExchangeFailed }
func (e *TokenExchangeError) Unwrap() error        { return e.Err }

// RemoteError is a non-200, non-401 response from the Web API.
//
// Message is empty when the body was not a provider error envelope.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrRemote, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrRemote, e.StatusCode, e.Message)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// IsSignInRequired reports whether err routes the user back to the sign-in flow
// rather than being a failure worth reporting.
func IsSignInRequired(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrAuthenticationCancelled)
}
