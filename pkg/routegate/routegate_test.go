package routegate

import (
	"net/url"
	"testing"
)

func TestIsPublic(t *testing.T) {
	p := Default()

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/login", true},
		{"/login/reset", true},
		{"/signup", true},
		{"/forgot-password", true},
		{"/about", true},
		{"/about/team", true},
		{"/aboutus", false},
		{"/dashboard", false},
		{"/dashboard/orders", false},
		{"/welcome", false},
		{"//double", true}, // "/" entry matches "//" as its sub-path
	}

	for _, tt := range tests {
		if got := p.IsPublic(tt.path); got != tt.want {
			t.Errorf("IsPublic(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestClassifyProtectedWithoutToken(t *testing.T) {
	for _, path := range []string{"/dashboard", "/dashboard/orders/42", "/welcome", "/api/user", "/settings"} {
		action := Classify(path, false)
		if action.Kind != RedirectHome {
			t.Fatalf("Classify(%q, false).Kind = %v, want %v", path, action.Kind, RedirectHome)
		}

		u, err := url.Parse(action.Location)
		if err != nil {
			t.Fatalf("Location %q: %v", action.Location, err)
		}
		if u.Path != "/" {
			t.Errorf("Location path = %q, want /", u.Path)
		}
		if got := u.Query().Get(FromParam); got != path {
			t.Errorf("from = %q, want %q", got, path)
		}
	}
}

func TestClassifyPublicPaths(t *testing.T) {
	tests := []struct {
		path     string
		hasToken bool
		want     Kind
	}{
		{"/", false, Continue},
		{"/", true, RedirectDashboard},
		{"/signup", false, Continue},
		{"/signup", true, RedirectDashboard},
		{"/login", false, Continue},
		{"/login", true, Continue},
		{"/about", true, Continue},
		{"/forgot-password", true, Continue},
		{"/signup/confirm", true, Continue},
		{"/dashboard", true, Continue},
	}

	for _, tt := range tests {
		action := Classify(tt.path, tt.hasToken)
		if action.Kind != tt.want {
			t.Errorf("Classify(%q, %v) = %v, want %v", tt.path, tt.hasToken, action.Kind, tt.want)
		}
		if tt.want == RedirectDashboard && action.Location != DefaultDashboardPath {
			t.Errorf("Location = %q, want %q", action.Location, DefaultDashboardPath)
		}
		if tt.want == Continue && action.Location != "" {
			t.Errorf("Continue carries location %q", action.Location)
		}
	}
}

func TestCustomPolicy(t *testing.T) {
	p := NewPolicy(
		WithPublicPaths("/", "/docs"),
		WithHomePath("/"),
		WithDashboardPath("/app"),
	)

	if p.IsPublic("/login") {
		t.Error("/login should not be public with a replaced allow-list")
	}
	if got := p.Classify("/", true); got.Location != "/app" {
		t.Errorf("Location = %q, want /app", got.Location)
	}
	if got := p.Classify("/docs/intro", false); got.Kind != Continue {
		t.Errorf("Kind = %v, want Continue", got.Kind)
	}
}

func TestPublicPathsIsCopy(t *testing.T) {
	p := NewPolicy()
	paths := p.PublicPaths()
	paths[0] = "/mutated"
	if p.IsPublic("/mutated") {
		t.Error("PublicPaths leaked internal slice")
	}
}

func TestKindString(t *testing.T) {
	if RedirectHome.String() != "redirect_home" {
		t.Errorf("RedirectHome.String() = %q", RedirectHome.String())
	}
	if Kind(99).String() != "unknown" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}

func TestExtendLeavesOriginalUnchanged(t *testing.T) {
	base := NewPolicy()
	ext := base.Extend(AddPublicPaths("/api/auth", "/api/session", "/login"))

	if !ext.IsPublic("/api/auth/login") || !ext.IsPublic("/api/session") {
		t.Error("extended policy should allow the added paths")
	}
	if base.IsPublic("/api/auth/login") {
		t.Error("Extend modified the original policy")
	}
	if got, want := len(ext.PublicPaths()), len(DefaultPublicPaths)+2; got != want {
		t.Errorf("len(PublicPaths) = %d, want %d (no duplicates)", got, want)
	}
	if ext.DashboardPath() != base.DashboardPath() {
		t.Error("Extend lost the dashboard path")
	}
}
