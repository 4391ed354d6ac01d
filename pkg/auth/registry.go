package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

// ErrRegistryClosed is returned when a closed registry is asked for a container.
var ErrRegistryClosed = errors.New("auth: registry is closed")

// RegistryConfig configures container eviction.
type RegistryConfig struct {
	// IdleTimeout is how long a container without subscribers survives
	// without activity. Default: 30 minutes.
	IdleTimeout time.Duration

	// CleanupInterval is how often idle containers are evicted.
	// Default: 1 minute. Negative disables the cleanup loop.
	CleanupInterval time.Duration
}

// DefaultRegistryConfig returns a RegistryConfig with sensible defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTimeout:     30 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Registry hands out one Container per client id.
type Registry struct {
	mu         sync.Mutex
	containers map[string]*Container
	store      *session.Store
	opts       []Option
	navigators func(clientID string) Navigator
	onEvict    func(clientID string)
	config     RegistryConfig
	logger     *slog.Logger
	now        func() time.Time
	done       chan struct{}
	closed     bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithContainerOptions sets options applied to every new container.
func WithContainerOptions(opts ...Option) RegistryOption {
	return func(r *Registry) {
		r.opts = append(r.opts, opts...)
	}
}

// WithNavigatorFactory builds the Navigator for each new container.
func WithNavigatorFactory(fn func(clientID string) Navigator) RegistryOption {
	return func(r *Registry) {
		r.navigators = fn
	}
}

// WithEvictHook is called, outside the registry lock, with the id of every
// container that is evicted or removed, so per-client state kept elsewhere
// can be dropped with it.
func WithEvictHook(fn func(clientID string)) RegistryOption {
	return func(r *Registry) {
		r.onEvict = fn
	}
}

// WithRegistryLogger sets the registry logger. Containers inherit it.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry and starts its cleanup loop.
func NewRegistry(store *session.Store, config RegistryConfig, opts ...RegistryOption) *Registry {
	def := DefaultRegistryConfig()
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	r := &Registry{
		containers: make(map[string]*Container),
		store:      store,
		config:     config,
		logger:     slog.Default(),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if config.CleanupInterval > 0 {
		go r.cleanupLoop()
	}
	return r
}

// Get returns the container for clientID, creating it on first use.
func (r *Registry) Get(clientID string) (*Container, error) {
	if clientID == "" {
		return nil, session.ErrNoClientID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}

	if c, ok := r.containers[clientID]; ok {
		c.Touch()
		return c, nil
	}

	opts := make([]Option, 0, len(r.opts)+2)
	opts = append(opts, WithLogger(r.logger))
	opts = append(opts, r.opts...)
	if r.navigators != nil {
		opts = append(opts, WithNavigator(r.navigators(clientID)))
	}

	c := NewContainer(clientID, r.store, opts...)
	c.now = r.now
	c.lastActive = r.now()
	r.containers[clientID] = c
	return c, nil
}

// Lookup returns an existing container without creating one.
func (r *Registry) Lookup(clientID string) (*Container, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[clientID]
	return c, ok
}

// Remove drops the container for clientID.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	_, ok := r.containers[clientID]
	delete(r.containers, clientID)
	r.mu.Unlock()

	if ok && r.onEvict != nil {
		r.onEvict(clientID)
	}
}

// Len returns the number of live containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.containers)
}

// Shutdown stops the cleanup loop and drops all containers.
// Durable storage is left intact.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	close(r.done)
	r.containers = make(map[string]*Container)
	return nil
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(r.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.done:
			return
		}
	}
}

// evictIdle removes containers with no subscribers that have been idle
// longer than IdleTimeout.
func (r *Registry) evictIdle() int {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}

	cutoff := r.now().Add(-r.config.IdleTimeout)
	var evicted []string
	for id, c := range r.containers {
		if c.Subscribers() > 0 {
			continue
		}
		if c.idleSince().Before(cutoff) {
			delete(r.containers, id)
			evicted = append(evicted, id)
		}
	}
	remaining := len(r.containers)
	r.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}
	r.logger.Debug("evicted idle auth containers",
		"count", len(evicted),
		"remaining", remaining)
	if r.onEvict != nil {
		for _, id := range evicted {
			r.onEvict(id)
		}
	}
	return len(evicted)
}
