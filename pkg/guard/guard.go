package guard

import (
	"sync"

	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
)

// Key is what the effect depends on.
type Key struct {
	Path            string
	IsAuthenticated bool
}

// Effect runs routegate classification when its key changes.
// It is safe for concurrent use.
type Effect struct {
	policy    *routegate.Policy
	navigator auth.Navigator
	observer  func(Key, routegate.Action)

	mu      sync.Mutex
	current Key
	hasPath bool
	last    Key
	fired   bool
}

// Option configures an Effect.
type Option func(*Effect)

// WithObserver is called with every classification the effect makes.
func WithObserver(fn func(Key, routegate.Action)) Option {
	return func(e *Effect) {
		e.observer = fn
	}
}

// New creates an Effect. A nil policy uses routegate.Default.
func New(policy *routegate.Policy, navigator auth.Navigator, opts ...Option) *Effect {
	if policy == nil {
		policy = routegate.Default()
	}
	e := &Effect{
		policy:    policy,
		navigator: navigator,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPath records the current path and runs the effect.
func (e *Effect) SetPath(path string) (routegate.Action, bool) {
	e.mu.Lock()
	e.current.Path = path
	e.hasPath = true
	key := e.current
	e.mu.Unlock()
	return e.Run(key)
}

// SetAuthenticated records the auth state and runs the effect if a path is known.
func (e *Effect) SetAuthenticated(v bool) (routegate.Action, bool) {
	e.mu.Lock()
	e.current.IsAuthenticated = v
	key, ok := e.current, e.hasPath
	e.mu.Unlock()
	if !ok {
		return routegate.Action{Kind: routegate.Continue}, false
	}
	return e.Run(key)
}

// Run classifies key unless it equals the key of the previous run.
// The boolean reports whether the effect fired.
func (e *Effect) Run(key Key) (routegate.Action, bool) {
	e.mu.Lock()
	if e.fired && key == e.last {
		e.mu.Unlock()
		return routegate.Action{Kind: routegate.Continue}, false
	}
	e.last = key
	e.fired = true
	e.mu.Unlock()

	action := e.policy.Classify(key.Path, key.IsAuthenticated)
	if e.observer != nil {
		e.observer(key, action)
	}
	if action.IsRedirect() && e.navigator != nil {
		e.navigator.Navigate(action.Location)
	}
	return action, true
}

// Watch feeds container state changes into the effect. The current
// state is applied immediately. The returned function stops watching.
func (e *Effect) Watch(c *auth.Container) func() {
	e.mu.Lock()
	e.current.IsAuthenticated = c.Session().IsAuthenticated
	e.mu.Unlock()

	return c.Subscribe(func(s auth.Session) {
		e.SetAuthenticated(s.IsAuthenticated)
	})
}

// Current returns the effect's current key.
func (e *Effect) Current() Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Check is the render-time form of the guard: it classifies path for s
// without any memory of previous runs.
func Check(policy *routegate.Policy, path string, s auth.Session) routegate.Action {
	if policy == nil {
		policy = routegate.Default()
	}
	return policy.Classify(path, s.IsAuthenticated)
}
