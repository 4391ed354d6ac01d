package routegate

import "strings"

// DefaultInternalPrefix is the first-segment prefix of framework-internal
// asset paths, which the filter never sees.
const DefaultInternalPrefix = "_assets"

// staticExtensions are skipped by the filter. "js" is special-cased so that
// ".json" paths are still filtered.
var staticExtensions = []string{
	"html", "htm", "css", "jpeg", "jpg", "webp", "png", "gif", "svg",
	"ttf", "woff2", "woff", "ico", "csv", "docx", "doc", "xlsx", "xls",
	"zip", "webmanifest",
}

// Matcher decides which request paths the server-side filter applies to.
type Matcher struct {
	internalPrefixes []string
	alwaysPrefixes   []string
	alwaysExact      []string
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithInternalPrefixes replaces the internal-asset prefixes.
func WithInternalPrefixes(prefixes ...string) MatcherOption {
	return func(m *Matcher) {
		m.internalPrefixes = append([]string(nil), prefixes...)
	}
}

// WithAlwaysPrefixes adds path prefixes that are always filtered.
func WithAlwaysPrefixes(prefixes ...string) MatcherOption {
	return func(m *Matcher) {
		m.alwaysPrefixes = append(m.alwaysPrefixes, prefixes...)
	}
}

// WithAlwaysExact adds exact paths that are always filtered.
func WithAlwaysExact(paths ...string) MatcherOption {
	return func(m *Matcher) {
		m.alwaysExact = append(m.alwaysExact, paths...)
	}
}

// NewMatcher returns the default matcher: everything except internal assets
// and static files, plus API, dashboard and welcome paths unconditionally.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		internalPrefixes: []string{DefaultInternalPrefix},
		alwaysPrefixes:   []string{"/api", "/trpc", "/dashboard"},
		alwaysExact:      []string{"/welcome"},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match reports whether the filter should run for path.
func (m *Matcher) Match(path string) bool {
	for _, prefix := range m.alwaysPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, exact := range m.alwaysExact {
		if path == exact {
			return true
		}
	}

	rest := strings.TrimPrefix(path, "/")
	if len(rest) == len(path) {
		return false
	}
	for _, prefix := range m.internalPrefixes {
		if prefix != "" && strings.HasPrefix(rest, prefix) {
			return false
		}
	}
	return !HasStaticExtension(rest)
}

// HasStaticExtension reports whether any dot in path is followed by one of
// the static file extensions.
func HasStaticExtension(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for i := 0; i < len(path); i++ {
		if path[i] != '.' {
			continue
		}
		ext := path[i+1:]
		if strings.HasPrefix(ext, "js") && !strings.HasPrefix(ext, "json") {
			return true
		}
		for _, candidate := range staticExtensions {
			if strings.HasPrefix(ext, candidate) {
				return true
			}
		}
	}
	return false
}
