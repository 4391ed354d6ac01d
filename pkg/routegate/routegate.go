package routegate

import (
	"net/url"
	"slices"
	"strings"
)

// Default paths used by the dashboard.
const (
	DefaultHomePath      = "/"
	DefaultSignUpPath    = "/signup"
	DefaultLoginPath     = "/login"
	DefaultDashboardPath = "/dashboard"

	// FromParam carries the originally requested path on a redirect home.
	FromParam = "from"
)

// DefaultPublicPaths is the allow-list of paths reachable without a session.
var DefaultPublicPaths = []string{
	DefaultLoginPath,
	DefaultSignUpPath,
	"/forgot-password",
	DefaultHomePath,
	"/about",
}

// Kind is the outcome of a classification.
type Kind int

const (
	// Continue lets the request or navigation proceed unchanged.
	Continue Kind = iota
	// RedirectHome sends an unauthenticated visitor to the home path.
	RedirectHome
	// RedirectDashboard sends an authenticated visitor away from home/sign-up.
	RedirectDashboard
)

// String returns the metric-friendly name of the kind.
func (k Kind) String() string {
	switch k {
	case Continue:
		return "continue"
	case RedirectHome:
		return "redirect_home"
	case RedirectDashboard:
		return "redirect_dashboard"
	default:
		return "unknown"
	}
}

// Action is the decision for one path.
type Action struct {
	Kind Kind

	// Location is the redirect target. Empty for Continue.
	Location string
}

// IsRedirect reports whether the action moves the visitor elsewhere.
func (a Action) IsRedirect() bool {
	return a.Kind != Continue
}

// Policy holds the allow-list and the well-known paths used by Classify.
// The zero value is not usable; use Default or NewPolicy.
type Policy struct {
	public        []string
	homePath      string
	signUpPath    string
	dashboardPath string
}

// Option configures a Policy.
type Option func(*Policy)

// WithPublicPaths replaces the allow-list.
func WithPublicPaths(paths ...string) Option {
	return func(p *Policy) {
		p.public = append([]string(nil), paths...)
	}
}

// AddPublicPaths appends to the allow-list.
func AddPublicPaths(paths ...string) Option {
	return func(p *Policy) {
		for _, path := range paths {
			if !slices.Contains(p.public, path) {
				p.public = append(p.public, path)
			}
		}
	}
}

// WithHomePath sets the path unauthenticated visitors are sent to.
func WithHomePath(path string) Option {
	return func(p *Policy) {
		if path != "" {
			p.homePath = path
		}
	}
}

// WithSignUpPath sets the sign-up path.
func WithSignUpPath(path string) Option {
	return func(p *Policy) {
		if path != "" {
			p.signUpPath = path
		}
	}
}

// WithDashboardPath sets the path authenticated visitors land on.
func WithDashboardPath(path string) Option {
	return func(p *Policy) {
		if path != "" {
			p.dashboardPath = path
		}
	}
}

// NewPolicy builds a policy from the defaults and the given options.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		public:        append([]string(nil), DefaultPublicPaths...),
		homePath:      DefaultHomePath,
		signUpPath:    DefaultSignUpPath,
		dashboardPath: DefaultDashboardPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extend returns a copy of p with opts applied. p is unchanged.
func (p *Policy) Extend(opts ...Option) *Policy {
	cp := *p
	cp.public = slices.Clone(p.public)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

var defaultPolicy = NewPolicy()

// Default returns the policy built from the package defaults.
func Default() *Policy {
	return defaultPolicy
}

// PublicPaths returns a copy of the allow-list.
func (p *Policy) PublicPaths() []string {
	return append([]string(nil), p.public...)
}

// HomePath returns the configured home path.
func (p *Policy) HomePath() string { return p.homePath }

// DashboardPath returns the configured dashboard path.
func (p *Policy) DashboardPath() string { return p.dashboardPath }

// IsPublic reports whether path is on the allow-list, either exactly or as
// a sub-path of an entry.
func (p *Policy) IsPublic(path string) bool {
	for _, route := range p.public {
		if path == route || strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// Classify decides what happens to a visitor at path. hasToken reports
// whether a session token is present.
func (p *Policy) Classify(path string, hasToken bool) Action {
	if !p.IsPublic(path) && !hasToken {
		return Action{Kind: RedirectHome, Location: p.HomeRedirect(path)}
	}
	if hasToken && (path == p.homePath || path == p.signUpPath) {
		return Action{Kind: RedirectDashboard, Location: p.dashboardPath}
	}
	return Action{Kind: Continue}
}

// HomeRedirect builds the home location carrying from=<path>.
func (p *Policy) HomeRedirect(from string) string {
	q := url.Values{}
	q.Set(FromParam, from)
	return p.homePath + "?" + q.Encode()
}

// Classify runs the default policy.
func Classify(path string, hasToken bool) Action {
	return defaultPolicy.Classify(path, hasToken)
}
