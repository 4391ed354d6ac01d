package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestExpiryCheck(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	check := ExpiryCheck{Now: func() time.Time { return now }}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"opaque token is trusted", "not-a-jwt", nil},
		{"no exp is trusted", signedToken(t, jwt.MapClaims{"sub": "u1"}), nil},
		{"future exp", signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}), nil},
		{"past exp", signedToken(t, jwt.MapClaims{"exp": now.Add(-time.Hour).Unix()}), ErrSessionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := check.Validate(context.Background(), tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpiryCheckLeeway(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := signedToken(t, jwt.MapClaims{"exp": now.Add(-30 * time.Second).Unix()})

	check := ExpiryCheck{Now: func() time.Time { return now }, Leeway: time.Minute}
	if err := check.Validate(context.Background(), tok); err != nil {
		t.Fatalf("Validate within leeway = %v", err)
	}
}
