package session

import (
	"errors"
	"strings"

	"github.com/rcmarket/marketplace/internal/domain"
)

var (
	// ErrNotLoggedIn is returned when an operation needs a cached identity.
	ErrNotLoggedIn = domain.ErrNotLoggedIn
	// ErrCurrentPasswordIncorrect is returned when password verification fails.
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	// ErrPasswordChangeNotImplemented is the stable result of a verified password change.
	ErrPasswordChangeNotImplemented = errors.New("password change is not implemented; use the identity provider's password reset")
	// ErrMalformedPrincipal is returned when an authority payload cannot form an Identity.
	ErrMalformedPrincipal = errors.New("malformed principal")
)

const (
	msgSignupFailed  = "signup failed"
	msgLoginFailed   = "invalid email or password"
	msgUnexpected    = "an error occurred"
	msgNoUserSignup  = "signup failed - no user returned"
	msgNoUserLogin   = "login failed - no user returned"
	msgBadUserRecord = "login failed - malformed user record"
)

// AuthError is an authority rejection surfaced to callers as a readable message.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// InternalError marks an authority failure that is not a verdict on the caller's
// input, such as a store or transport fault. Its text never reaches callers.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return "authority: " + e.Err.Error() }

func (e *InternalError) Unwrap() error { return e.Err }

// Internal wraps err as an *InternalError. A nil err stays nil.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Err: err}
}

func rejection(err error, fallback string) *AuthError {
	var internal *InternalError
	if errors.As(err, &internal) {
		return &AuthError{Message: msgUnexpected, Err: err}
	}
	msg := ""
	if err != nil {
		msg = strings.TrimSpace(err.Error())
	}
	if msg == "" {
		msg = fallback
	}
	return &AuthError{Message: msg, Err: err}
}
