package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

// DefaultLoginPath is where Logout navigates.
const DefaultLoginPath = routegate.DefaultLoginPath

// Container is the explicit auth state for one client.
// It is safe for concurrent use.
type Container struct {
	mu         sync.RWMutex
	clientID   string
	token      string
	restored   bool
	lastActive time.Time

	store      *session.Store
	navigator  Navigator
	validators []Validator
	loginPath  string
	logger     *slog.Logger
	now        func() time.Time

	subMu   sync.Mutex
	subs    map[uint64]func(Session)
	nextSub uint64
}

// Option configures a Container.
type Option func(*Container)

// WithNavigator sets the navigator used by Logout.
func WithNavigator(n Navigator) Option {
	return func(c *Container) {
		c.navigator = n
	}
}

// WithLoginPath overrides the path Logout navigates to.
func WithLoginPath(path string) Option {
	return func(c *Container) {
		if path != "" {
			c.loginPath = path
		}
	}
}

// WithValidators sets the validators run by Restore.
func WithValidators(v ...Validator) Option {
	return func(c *Container) {
		c.validators = append(c.validators, v...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewContainer creates an Unauthenticated container for clientID.
func NewContainer(clientID string, store *session.Store, opts ...Option) *Container {
	c := &Container{
		clientID:  clientID,
		store:     store,
		loginPath: DefaultLoginPath,
		logger:    slog.Default(),
		now:       time.Now,
		subs:      make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "auth", "client_id", clientID)
	c.lastActive = c.now()
	return c
}

// ClientID returns the client id the container belongs to.
func (c *Container) ClientID() string {
	return c.clientID
}

// Session returns the current state.
func (c *Container) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sessionFor(c.token)
}

// Restored reports whether Restore, Login or Logout has run.
func (c *Container) Restored() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.restored
}

// Login persists token and moves the container to Authenticated.
// On a durable-storage failure the state is left unchanged.
func (c *Container) Login(ctx context.Context, w http.ResponseWriter, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := c.store.Set(ctx, w, c.clientID, token); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = token
	c.restored = true
	c.lastActive = c.now()
	c.mu.Unlock()

	c.logger.Debug("logged in")
	c.notify()
	return nil
}

// Logout clears the session and moves the container to Unauthenticated,
// then navigates to the login path. The state changes even when the
// durable remove fails; that error is returned.
func (c *Container) Logout(ctx context.Context, w http.ResponseWriter) error {
	err := c.store.Clear(ctx, w, c.clientID)
	if err != nil {
		c.logger.Warn("logout: durable remove failed", "error", err)
	}

	c.mu.Lock()
	c.token = ""
	c.restored = true
	c.lastActive = c.now()
	c.mu.Unlock()

	c.logger.Debug("logged out")
	c.notify()
	if c.navigator != nil {
		c.navigator.Navigate(c.loginPath)
	}
	return err
}

// LoginPath returns the path Logout navigates to.
func (c *Container) LoginPath() string {
	return c.loginPath
}

// Restore runs once per container: it reads durable storage and, when a
// token exists and no validator rejects it, moves to Authenticated and
// re-mirrors the cookie on w. Later calls return the current state.
func (c *Container) Restore(ctx context.Context, w http.ResponseWriter) (Session, error) {
	c.mu.Lock()
	if c.restored {
		c.lastActive = c.now()
		s := sessionFor(c.token)
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	token, ok, err := c.store.Load(ctx, c.clientID)
	if err != nil {
		return Session{}, err
	}

	if ok {
		if verr := c.validate(ctx, token); verr != nil {
			c.logger.Info("stored token discarded", "reason", verr)
			if cerr := c.store.Clear(ctx, w, c.clientID); cerr != nil {
				c.logger.Warn("restore: durable remove failed", "error", cerr)
			}
			token, ok = "", false
		}
	}

	c.mu.Lock()
	if c.restored {
		// A concurrent Login or Logout won.
		s := sessionFor(c.token)
		c.mu.Unlock()
		return s, nil
	}
	c.restored = true
	c.lastActive = c.now()
	if ok {
		c.token = token
	}
	s := sessionFor(c.token)
	c.mu.Unlock()

	if ok {
		c.store.Mirror(w, token)
		c.notify()
	}
	return s, nil
}

// validate returns a non-nil error only when the token must be discarded.
func (c *Container) validate(ctx context.Context, token string) error {
	for _, v := range c.validators {
		err := v.Validate(ctx, token)
		if err == nil {
			continue
		}
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrSessionRevoked) {
			return err
		}
		c.logger.Warn("token validation failed, keeping token", "error", err)
	}
	return nil
}

// Subscribe registers fn to be called with the new state after every
// change. The returned function removes the subscription.
func (c *Container) Subscribe(fn func(Session)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (c *Container) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

// Touch marks the container active.
func (c *Container) Touch() {
	c.mu.Lock()
	c.lastActive = c.now()
	c.mu.Unlock()
}

func (c *Container) idleSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActive
}

func (c *Container) notify() {
	s := c.Session()

	c.subMu.Lock()
	fns := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
