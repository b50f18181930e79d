package auth

import (
	"errors"
	"fmt"
)

// Sentinel kinds for auth errors.
var (
	// ErrStateMismatch aborts the callback: the returned state is not the
	// one stashed before the redirect, or nothing was stashed.
	ErrStateMismatch     = errors.New("state does not match")
	ErrInvalidTransition = errors.New("invalid auth state transition")
	ErrNoToken           = errors.New("no cached token")
)

// HTTPError reports a non-2xx answer from the identity provider.
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}
