package authmw

import (
	"log/slog"
	"net/http"

	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

// Observer is told about every decision the filter makes.
type Observer func(r *http.Request, action routegate.Action)

// Filter is the server-side route filter.
type Filter struct {
	policy     *routegate.Policy
	matcher    *routegate.Matcher
	cookieName string
	status     int
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithPolicy sets the classification policy.
func WithPolicy(p *routegate.Policy) Option {
	return func(f *Filter) {
		if p != nil {
			f.policy = p
		}
	}
}

// WithMatcher sets the path matcher.
func WithMatcher(m *routegate.Matcher) Option {
	return func(f *Filter) {
		if m != nil {
			f.matcher = m
		}
	}
}

// WithCookieName sets the cookie holding the token.
func WithCookieName(name string) Option {
	return func(f *Filter) {
		if name != "" {
			f.cookieName = name
		}
	}
}

// WithRedirectStatus sets the redirect status code.
// Default: 307 Temporary Redirect.
func WithRedirectStatus(code int) Option {
	return func(f *Filter) {
		if code >= 300 && code < 400 {
			f.status = code
		}
	}
}

// WithObserver sets a decision observer, typically a metrics counter.
func WithObserver(o Observer) Option {
	return func(f *Filter) {
		f.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Filter with the default policy and matcher.
func New(opts ...Option) *Filter {
	f := &Filter{
		policy:     routegate.Default(),
		matcher:    routegate.NewMatcher(),
		cookieName: session.CookieName,
		status:     http.StatusTemporaryRedirect,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Decide classifies r. The boolean is false when the matcher excludes the path.
func (f *Filter) Decide(r *http.Request) (routegate.Action, bool) {
	path := r.URL.Path
	if !f.matcher.Match(path) {
		return routegate.Action{Kind: routegate.Continue}, false
	}
	_, hasToken := session.TokenFromRequest(r, f.cookieName)
	return f.policy.Classify(path, hasToken), true
}

// Middleware returns the filter as net/http middleware.
func (f *Filter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			action, applied := f.Decide(r)
			if !applied {
				next.ServeHTTP(w, r)
				return
			}
			if f.observer != nil {
				f.observer(r, action)
			}
			if !action.IsRedirect() {
				next.ServeHTTP(w, r)
				return
			}

			f.logger.Debug("route filter redirect",
				"path", r.URL.Path,
				"decision", action.Kind.String(),
				"location", action.Location)
			http.Redirect(w, r, action.Location, f.status)
		})
	}
}
