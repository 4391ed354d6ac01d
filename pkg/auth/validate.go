package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Validator checks a stored token during Restore.
// Returning ErrSessionExpired or ErrSessionRevoked discards the token.
type Validator interface {
	Validate(ctx context.Context, token string) error
}

// ValidatorFunc adapts a function to a Validator.
type ValidatorFunc func(ctx context.Context, token string) error

// Validate calls f(ctx, token).
func (f ValidatorFunc) Validate(ctx context.Context, token string) error {
	return f(ctx, token)
}

// ExpiryCheck rejects JWT-shaped tokens whose exp claim has passed.
// The signature is not verified; the backend owns the signing key.
// Tokens that do not parse as JWTs, or carry no exp, are accepted.
type ExpiryCheck struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Leeway tolerates clock skew.
	Leeway time.Duration
}

// Validate implements Validator.
func (e ExpiryCheck) Validate(_ context.Context, token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if now().After(exp.Time.Add(e.Leeway)) {
		return ErrSessionExpired
	}
	return nil
}
