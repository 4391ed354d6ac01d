package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the backend's answer to a login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// Err returns a *RejectedError when the backend reported failure.
func (r LoginResponse) Err() error {
	if r.Success {
		return nil
	}
	return &RejectedError{Op: "login", Message: r.Message}
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is the backend's answer to a registration.
type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Err returns a *RejectedError when the backend reported failure.
func (r RegisterResponse) Err() error {
	if r.Success {
		return nil
	}
	return &RejectedError{Op: "register", Message: r.Message}
}

// RejectedError is a well-formed response whose success flag is false.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: %s rejected", e.Op)
	}
	return fmt.Sprintf("backend: %s rejected: %s", e.Op, e.Message)
}

// ErrMissingToken is wrapped in a TransportError when a successful login
// response carries no token.
var ErrMissingToken = errors.New("backend: login response has no token")

// TransportError covers network failures, non-2xx statuses and malformed
// response bodies. StatusCode is 0 when no response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is a TransportError carrying 401 or 403.
func IsUnauthorized(err error) bool {
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	return te.StatusCode == http.StatusUnauthorized || te.StatusCode == http.StatusForbidden
}
