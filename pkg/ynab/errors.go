package ynab

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means there is no access token in the session; nothing was sent.
	ErrUnauthenticated = errors.New("no YNAB access token found")
	// ErrUnauthorized means YNAB answered 401. The token has been removed from the session.
	ErrUnauthorized = errors.New("unauthorized, please login again")
	// ErrNetwork covers transport failures and responses that could not be understood.
	ErrNetwork = errors.New("network error")
)

// RemoteRejectedError is any non-2xx answer other than 401.
type RemoteRejectedError struct {
	Operation  string
	StatusCode int
	Status     string
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("failed to %s: %s", e.Operation, e.Status)
}

// IsAuthError reports whether err asks the user to sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrUnauthorized)
}
