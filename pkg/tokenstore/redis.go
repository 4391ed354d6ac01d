package tokenstore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis used by RedisStore.
// *redis.Client and *redis.ClusterClient satisfy it.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps entries in Redis so every dashboard replica sees the
// same durable storage.
type RedisStore struct {
	client RedisClient
	prefix string
	closed atomic.Bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*redisStoreConfig)

type redisStoreConfig struct {
	prefix string
}

// WithRedisPrefix sets the key prefix.
// Default: "dashboard:storage:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(c *redisStoreConfig) {
		c.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client RedisClient, opts ...RedisStoreOption) *RedisStore {
	cfg := &redisStoreConfig{
		prefix: "dashboard:storage:",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &RedisStore{
		client: client,
		prefix: cfg.prefix,
	}
}

func (r *RedisStore) key(clientID, key string) string {
	return r.prefix + clientID + ":" + key
}

// Get returns the value for clientID/key.
func (r *RedisStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	if r.closed.Load() {
		return "", false, ErrStoreClosed
	}
	if clientID == "" {
		return "", false, ErrEmptyClientID
	}

	val, err := r.client.Get(ctx, r.key(clientID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set stores value for clientID/key. Expiry is delegated to Redis TTLs.
func (r *RedisStore) Set(ctx context.Context, clientID, key, value string, expiresAt time.Time) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	if clientID == "" {
		return ErrEmptyClientID
	}

	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
		if ttl <= 0 {
			return r.Delete(ctx, clientID, key)
		}
	}

	return r.client.Set(ctx, r.key(clientID, key), value, ttl).Err()
}

// Delete removes clientID/key.
func (r *RedisStore) Delete(ctx context.Context, clientID, key string) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	if clientID == "" {
		return ErrEmptyClientID
	}

	return r.client.Del(ctx, r.key(clientID, key)).Err()
}

// Close marks the store as closed. The Redis client is owned by the caller
// and is left open.
func (r *RedisStore) Close() error {
	r.closed.Store(true)
	return nil
}

// Prefix returns the key prefix.
func (r *RedisStore) Prefix() string {
	return r.prefix
}
