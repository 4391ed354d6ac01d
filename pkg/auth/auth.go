package auth

import (
	"errors"
	"net/http"
)

// Session is the derived read of a Container.
type Session struct {
	Token           string `json:"-"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

func sessionFor(token string) Session {
	return Session{Token: token, IsAuthenticated: token != ""}
}

// ErrUnauthorized is returned when authentication is required but not present.
// This typically triggers a 401 response or redirect to home.
var ErrUnauthorized = errors.New("unauthorized: authentication required")

// ErrEmptyToken is returned by Login when the token is empty.
var ErrEmptyToken = errors.New("auth: empty token")

var (
	// ErrSessionExpired indicates the stored token is no longer valid due to expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked indicates the backend no longer accepts the stored token.
	ErrSessionRevoked = errors.New("session revoked")
)

// StatusCode returns the appropriate HTTP status code for an auth error.
// Returns (statusCode, true) for auth errors, (0, false) otherwise.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrSessionRevoked):
		return http.StatusUnauthorized, true
	default:
		return 0, false
	}
}

// Navigator performs client navigation for a container.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) {
	f(path)
}
