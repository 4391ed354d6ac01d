package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. It is the default store and
// suits single-instance deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[entryKey]memoryEntry
	closed  bool
	done    chan struct{}
	now     func() time.Time
}

type entryKey struct {
	clientID string
	key      string
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStoreOption configures MemoryStore behavior.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	cleanupInterval time.Duration
}

// WithCleanupInterval sets how often expired entries are removed.
// Default: 1 minute. Zero or negative disables the cleanup loop.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.cleanupInterval = d
	}
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{
		cleanupInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &MemoryStore{
		entries: make(map[entryKey]memoryEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if cfg.cleanupInterval > 0 {
		go store.cleanupLoop(cfg.cleanupInterval)
	}
	return store
}

// Get returns the value for clientID/key if present and not expired.
func (m *MemoryStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	if clientID == "" {
		return "", false, ErrEmptyClientID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrStoreClosed
	}

	e, ok := m.entries[entryKey{clientID, key}]
	if !ok || expired(e.expiresAt, m.now()) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value for clientID/key.
func (m *MemoryStore) Set(ctx context.Context, clientID, key, value string, expiresAt time.Time) error {
	if clientID == "" {
		return ErrEmptyClientID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.entries[entryKey{clientID, key}] = memoryEntry{value: value, expiresAt: expiresAt}
	return nil
}

// Delete removes clientID/key.
func (m *MemoryStore) Delete(ctx context.Context, clientID, key string) error {
	if clientID == "" {
		return ErrEmptyClientID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.entries, entryKey{clientID, key})
	return nil
}

// Close stops the cleanup loop and drops all entries.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)
	m.entries = nil
	return nil
}

// Count returns the number of stored entries, expired ones included.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	now := m.now()
	for k, e := range m.entries {
		if expired(e.expiresAt, now) {
			delete(m.entries, k)
		}
	}
}
