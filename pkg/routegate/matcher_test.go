package routegate

import "testing"

func TestMatcher(t *testing.T) {
	m := NewMatcher()

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/dashboard", true},
		{"/dashboard/logo.png", true},
		{"/dashboards", true},
		{"/api/user", true},
		{"/api/export.csv", true},
		{"/trpc/session", true},
		{"/welcome", true},
		{"/_assets/app.js", false},
		{"/_assets", false},
		{"/logo.svg", false},
		{"/styles/site.css", false},
		{"/bundle.js", false},
		{"/bundle.jsx", false},
		{"/data.json", true},
		{"/report.docx", false},
		{"/fonts/inter.woff2", false},
		{"/site.webmanifest", false},
		{"/about", true},
		{"/nested/_assets/x", true},
		{"relative", false},
	}

	for _, tt := range tests {
		if got := m.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatcherOptions(t *testing.T) {
	m := NewMatcher(
		WithInternalPrefixes("_next"),
		WithAlwaysExact("/health.json"),
	)
	if m.Match("/_next/static/chunk") {
		t.Error("custom internal prefix should be skipped")
	}
	if !m.Match("/_assets/thing") {
		t.Error("default internal prefix should no longer be skipped")
	}
	if !m.Match("/health.json") {
		t.Error("always-exact path should match")
	}
}

func TestHasStaticExtension(t *testing.T) {
	if !HasStaticExtension("a/b.min.js") {
		t.Error("expected .js to be static")
	}
	if HasStaticExtension("feed.json") {
		t.Error("expected .json to be dynamic")
	}
	if HasStaticExtension("archive") {
		t.Error("no dot should be dynamic")
	}
	if HasStaticExtension("search?q=a.png") {
		t.Error("query string must be ignored")
	}
}
