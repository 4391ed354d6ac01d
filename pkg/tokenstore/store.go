package tokenstore

import (
	"context"
	"errors"
	"time"
)

// Store persists string values per client id and key.
type Store interface {
	// Get returns the value stored under key for clientID.
	// The boolean is false when the entry does not exist or has expired.
	Get(ctx context.Context, clientID, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	// A zero expiresAt keeps the entry until it is deleted.
	Set(ctx context.Context, clientID, key, value string, expiresAt time.Time) error

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, clientID, key string) error

	// Close releases resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when operations are attempted on a closed store.
var ErrStoreClosed = errors.New("tokenstore: store is closed")

// ErrEmptyClientID is returned when an operation is attempted without a client id.
var ErrEmptyClientID = errors.New("tokenstore: empty client id")

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
