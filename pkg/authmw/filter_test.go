package authmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

func serve(t *testing.T, f *Filter, path string, token string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	called := false
	h := f.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, called
}

func TestFilterProtectedWithoutToken(t *testing.T) {
	f := New()
	for _, path := range []string{"/dashboard", "/dashboard/orders/42", "/welcome", "/settings", "/api/orders"} {
		t.Run(path, func(t *testing.T) {
			rec, called := serve(t, f, path, "")
			if called {
				t.Fatal("next handler reached without a token")
			}
			if rec.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want 307", rec.Code)
			}
			want := routegate.Default().HomeRedirect(path)
			if got := rec.Header().Get("Location"); got != want {
				t.Fatalf("Location = %q, want %q", got, want)
			}
		})
	}
}

func TestFilterPublicPaths(t *testing.T) {
	f := New()
	tests := []struct {
		path     string
		token    string
		location string
	}{
		{"/", "", ""},
		{"/about", "", ""},
		{"/about", "tok", ""},
		{"/login", "", ""},
		{"/login", "tok", ""},
		{"/forgot-password", "tok", ""},
		{"/signup/step-2", "", ""},
		{"/", "tok", "/dashboard"},
		{"/signup", "tok", "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.token, func(t *testing.T) {
			rec, called := serve(t, f, tt.path, tt.token)
			if tt.location == "" {
				if !called {
					t.Fatalf("request to %s was not passed through", tt.path)
				}
				return
			}
			if called || rec.Header().Get("Location") != tt.location {
				t.Fatalf("called=%v Location=%q, want redirect to %s", called, rec.Header().Get("Location"), tt.location)
			}
		})
	}
}

func TestFilterSkipsUnmatchedPaths(t *testing.T) {
	f := New()
	for _, path := range []string{"/_assets/app.css", "/logo.png", "/fonts/inter.woff2", "/bundle.js"} {
		if _, called := serve(t, f, path, ""); !called {
			t.Errorf("%s should bypass the filter", path)
		}
	}
	if _, called := serve(t, f, "/data.json", ""); called {
		t.Error("/data.json should be filtered")
	}
}

func TestFilterObserver(t *testing.T) {
	var kinds []routegate.Kind
	f := New(WithObserver(func(_ *http.Request, a routegate.Action) {
		kinds = append(kinds, a.Kind)
	}), WithRedirectStatus(http.StatusFound))

	rec, _ := serve(t, f, "/dashboard", "")
	serve(t, f, "/dashboard", "tok")
	serve(t, f, "/logo.svg", "")

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if len(kinds) != 2 || kinds[0] != routegate.RedirectHome || kinds[1] != routegate.Continue {
		t.Fatalf("observed = %v", kinds)
	}
}

func TestFilterCustomPolicy(t *testing.T) {
	policy := routegate.NewPolicy(routegate.WithPublicPaths(append(routegate.DefaultPublicPaths, "/api/auth")...))
	f := New(WithPolicy(policy), WithCookieName("sid"))

	if _, called := serve(t, f, "/api/auth/login", ""); !called {
		t.Fatal("/api/auth/login should be public")
	}

	// The default cookie name is no longer consulted.
	if _, called := serve(t, f, "/dashboard", "tok"); called {
		t.Fatal("token under the wrong cookie name was accepted")
	}
}
