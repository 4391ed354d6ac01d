package assets

import "strings"

// DefaultPrefix is the URL prefix the dashboard serves assets under.
const DefaultPrefix = "/_assets/"

// Resolver maps an asset name to the URL a page should reference.
type Resolver interface {
	Asset(source string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver that looks names up in m and prepends
// prefix. A nil manifest behaves like an empty one.
func NewResolver(m *Manifest, prefix string) Resolver {
	if m == nil {
		return NewPassthroughResolver(prefix)
	}
	return &manifestResolver{
		manifest: m,
		prefix:   normalizePrefix(prefix),
	}
}

func (r *manifestResolver) Asset(source string) string {
	return r.prefix + r.manifest.Resolve(strings.TrimPrefix(source, "/"))
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver creates a resolver that only applies the prefix.
// Used when no manifest is configured, so development and production
// paths share the same shape.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: normalizePrefix(prefix)}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + strings.TrimPrefix(source, "/")
}

func normalizePrefix(prefix string) string {
	if prefix == "" {
		return "/"
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
