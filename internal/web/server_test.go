package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/pkg/authforms"
	"github.com/meghaexpress/hub-dashboard/pkg/middleware"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
	"github.com/meghaexpress/hub-dashboard/pkg/tokenstore"
)

type fakeBackend struct {
	mu        sync.Mutex
	login     backend.LoginResponse
	loginErr  error
	register  backend.RegisterResponse
	regErr    error
	user      json.RawMessage
	userErr   error
	userToken string
}

func (f *fakeBackend) Login(ctx context.Context, email, password string) (backend.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.login, f.loginErr
}

func (f *fakeBackend) Register(ctx context.Context, req backend.RegisterRequest) (backend.RegisterResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.register, f.regErr
}

func (f *fakeBackend) CurrentUser(ctx context.Context, token string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userToken = token
	return f.user, f.userErr
}

func (f *fakeBackend) setLogin(resp backend.LoginResponse, err error) {
	f.mu.Lock()
	f.login, f.loginErr = resp, err
	f.mu.Unlock()
}

func (f *fakeBackend) setRegister(resp backend.RegisterResponse, err error) {
	f.mu.Lock()
	f.register, f.regErr = resp, err
	f.mu.Unlock()
}

func (f *fakeBackend) setUser(user json.RawMessage, err error) {
	f.mu.Lock()
	f.user, f.userErr = user, err
	f.mu.Unlock()
}

func (f *fakeBackend) lastUserToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userToken
}

type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	client  *http.Client
	backend *fakeBackend
	storage *tokenstore.MemoryStore
	reg     *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	storage := tokenstore.NewMemoryStore(tokenstore.WithCleanupInterval(0))
	fb := &fakeBackend{}
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(middleware.WithRegistry(reg))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	forms := authforms.NewService(fb,
		authforms.WithObserver(func(name string, o authforms.Outcome) {
			metrics.RecordSubmission(name, string(o))
		}),
		authforms.WithLogger(logger),
	)

	srv, err := New(Config{
		Sessions: session.NewStore(storage),
		Forms:    forms,
		Users:    fb,
		Metrics:  metrics,
		Gatherer: reg,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
		storage.Close()
	})
	return &testEnv{srv: srv, ts: ts, client: client, backend: fb, storage: storage, reg: reg}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) postJSON(t *testing.T, path string, v any) (*http.Response, apiResponseBody) {
	t.Helper()
	data, _ := json.Marshal(v)
	resp, err := e.client.Post(e.ts.URL+path, "application/json", strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out apiResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp, out
}

func (e *testEnv) setToken(t *testing.T, token string) {
	t.Helper()
	u, _ := url.Parse(e.ts.URL)
	e.client.Jar.SetCookies(u, []*http.Cookie{{Name: session.CookieName, Value: token, Path: "/"}})
}

func (e *testEnv) cookie(name string) (string, bool) {
	u, _ := url.Parse(e.ts.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// expectMetric checks the registry's text exposition for line.
func (e *testEnv) expectMetric(t *testing.T, line string) {
	t.Helper()
	n, err := testutil.GatherAndCount(e.reg)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n == 0 {
		t.Fatal("no metrics registered")
	}
	_, body := e.get(t, "/metrics")
	if !strings.Contains(body, line) {
		t.Errorf("metrics output missing %q", line)
	}
}

type apiResponseBody struct {
	Outcome  string            `json:"outcome"`
	Errors   map[string]string `json:"errors"`
	Redirect string            `json:"redirect"`
	Toasts   []struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	} `json:"toasts"`
	View    string `json:"view"`
	Session struct {
		IsAuthenticated bool `json:"isAuthenticated"`
	} `json:"session"`
}

func (e *testEnv) signIn(t *testing.T, token string) {
	t.Helper()
	e.backend.setLogin(backend.LoginResponse{Success: true, Token: token}, nil)
	resp, body := e.postJSON(t, "/api/auth/login", map[string]string{
		"email":    "asha@example.com",
		"password": "Secret1!",
	})
	if resp.StatusCode != http.StatusOK || body.Outcome != "success" {
		t.Fatalf("sign-in: status %d outcome %q", resp.StatusCode, body.Outcome)
	}
}

var metaRefresh = regexp.MustCompile(`http-equiv="refresh" content="0; url=([^"]+)"`)

// follow walks Location headers and meta refreshes from path and returns
// the path of the first page that neither redirects nor refreshes.
func (e *testEnv) follow(t *testing.T, path string, maxHops int) (string, int) {
	t.Helper()
	var hops []string
	for i := 0; i <= maxHops; i++ {
		resp, body := e.get(t, path)
		hops = append(hops, fmt.Sprintf("%s -> %d", path, resp.StatusCode))
		next := resp.Header.Get("Location")
		if next == "" {
			if m := metaRefresh.FindStringSubmatch(body); m != nil {
				next = html.UnescapeString(m[1])
			}
		}
		if next == "" {
			return path, resp.StatusCode
		}
		path = next
	}
	t.Fatalf("navigation did not settle after %d hops: %s", maxHops, strings.Join(hops, ", "))
	return "", 0
}

func TestFilterRedirects(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		token    bool
		status   int
		location string
	}{
		{"protected without token", "/dashboard", false, http.StatusTemporaryRedirect, "/?from=%2Fdashboard"},
		{"nested protected without token", "/dashboard/orders", false, http.StatusTemporaryRedirect, "/?from=%2Fdashboard%2Forders"},
		{"welcome without token", "/welcome", false, http.StatusTemporaryRedirect, "/?from=%2Fwelcome"},
		{"private api without token", "/api/user", false, http.StatusTemporaryRedirect, "/?from=%2Fapi%2Fuser"},
		{"home with token", "/", true, http.StatusTemporaryRedirect, "/dashboard"},
		{"signup with token", "/signup", true, http.StatusTemporaryRedirect, "/dashboard"},
		{"public home", "/", false, http.StatusOK, ""},
		{"public login", "/login", false, http.StatusOK, ""},
		{"public about", "/about", false, http.StatusOK, ""},
		{"public forgot password", "/forgot-password", false, http.StatusOK, ""},
		{"login with token", "/login", true, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.token {
				env.setToken(t, "tok")
			}
			resp, _ := env.get(t, tt.path)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := resp.Header.Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestStaticAssetsBypassFilter(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/_assets/dashboard.js")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "/ws/guard") {
		t.Error("asset body does not look like the client script")
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestSignInFlow(t *testing.T) {
	env := newTestEnv(t)

	env.backend.setLogin(backend.LoginResponse{Success: true, Token: "tok-1"}, nil)
	resp, body := env.postJSON(t, "/api/auth/login", map[string]string{
		"email":    "asha@example.com",
		"password": "Secret1!",
		"from":     "/dashboard/orders",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Outcome != "success" || body.Redirect != "/dashboard/orders" {
		t.Fatalf("outcome = %q redirect = %q", body.Outcome, body.Redirect)
	}
	if !body.Session.IsAuthenticated {
		t.Error("session not authenticated after sign-in")
	}
	if len(body.Toasts) != 1 || body.Toasts[0].Message != "Signed in successfully!" {
		t.Errorf("toasts = %+v", body.Toasts)
	}
	if v, ok := env.cookie(session.CookieName); !ok || v != "tok-1" {
		t.Errorf("token cookie = %q, %v", v, ok)
	}

	resp, page := env.get(t, "/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	if !strings.Contains(page, "<h1>Dashboard</h1>") {
		t.Error("dashboard page not rendered")
	}

	env.expectMetric(t, `dashboard_auth_submissions_total{form="sign_in",outcome="success"} 1`)
}

func TestSignInOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		login   backend.LoginResponse
		err     error
		values  map[string]string
		status  int
		outcome string
		toast   string
	}{
		{
			name:    "invalid",
			values:  map[string]string{"email": "nope"},
			status:  http.StatusUnprocessableEntity,
			outcome: "invalid",
		},
		{
			name:    "rejected",
			login:   backend.LoginResponse{Success: false, Message: "Account locked"},
			values:  map[string]string{"email": "asha@example.com", "password": "x"},
			status:  http.StatusOK,
			outcome: "rejected",
			toast:   "Account locked",
		},
		{
			name:    "backend down",
			err:     &backend.TransportError{Op: "login", StatusCode: 503},
			values:  map[string]string{"email": "asha@example.com", "password": "x"},
			status:  http.StatusBadGateway,
			outcome: "failed",
			toast:   "Invalid credentials, try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.backend.setLogin(tt.login, tt.err)

			resp, body := env.postJSON(t, "/api/auth/login", tt.values)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if body.Outcome != tt.outcome {
				t.Errorf("outcome = %q, want %q", body.Outcome, tt.outcome)
			}
			if body.Session.IsAuthenticated {
				t.Error("session authenticated after unsuccessful sign-in")
			}
			if tt.toast != "" && (len(body.Toasts) != 1 || body.Toasts[0].Message != tt.toast) {
				t.Errorf("toasts = %+v, want %q", body.Toasts, tt.toast)
			}
			if _, ok := env.cookie(session.CookieName); ok {
				t.Error("token cookie set after unsuccessful sign-in")
			}
		})
	}
}

func TestSignInFormEncoded(t *testing.T) {
	env := newTestEnv(t)
	env.backend.setLogin(backend.LoginResponse{Success: true, Token: "tok-form"}, nil)

	resp, err := env.client.PostForm(env.ts.URL+"/api/auth/login", url.Values{
		"email":    {"asha@example.com"},
		"password": {"Secret1!"},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if v, _ := env.cookie(session.CookieName); v != "tok-form" {
		t.Errorf("token cookie = %q", v)
	}
}

func TestRegisterSwitchesToSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.backend.setRegister(backend.RegisterResponse{Success: true}, nil)

	_, body := env.postJSON(t, "/api/auth/view", map[string]string{"view": "sign_up"})
	if body.View != "sign_up" {
		t.Fatalf("view = %q, want sign_up", body.View)
	}

	resp, body := env.postJSON(t, "/api/auth/register", map[string]string{
		"name":            "Asha",
		"email":           "asha@example.com",
		"password":        "Secret1!",
		"confirmPassword": "Secret1!",
	})
	if resp.StatusCode != http.StatusOK || body.Outcome != "success" {
		t.Fatalf("status = %d outcome = %q errors = %v", resp.StatusCode, body.Outcome, body.Errors)
	}
	if body.View != "sign_in" {
		t.Errorf("view after sign-up = %q, want sign_in", body.View)
	}
	if body.Session.IsAuthenticated {
		t.Error("sign-up must not sign the user in")
	}
}

func TestViewToggle(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.postJSON(t, "/api/auth/view", nil)
	if body.View != "sign_up" {
		t.Fatalf("first toggle = %q, want sign_up", body.View)
	}
	_, body = env.postJSON(t, "/api/auth/view", nil)
	if body.View != "sign_in" {
		t.Fatalf("second toggle = %q, want sign_in", body.View)
	}

	_, page := env.get(t, "/signup")
	if !strings.Contains(page, `data-view="sign_up"`) {
		t.Error("/signup does not render the sign-up view")
	}
	_, body = env.postJSON(t, "/api/auth/view", nil)
	if body.View != "sign_up" {
		t.Error("rendering /signup changed the stored view")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-2")

	resp, body := env.postJSON(t, "/api/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Redirect != "/login" {
		t.Errorf("redirect = %q, want /login", body.Redirect)
	}
	if body.Session.IsAuthenticated {
		t.Error("still authenticated after logout")
	}
	if _, ok := env.cookie(session.CookieName); ok {
		t.Error("token cookie survived logout")
	}

	resp, _ = env.get(t, "/dashboard")
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("dashboard after logout: status = %d", resp.StatusCode)
	}
}

func TestSessionRestoredAcrossContainers(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-3")

	cid, ok := env.cookie(session.ClientIDCookieName)
	if !ok {
		t.Fatal("no client id cookie")
	}
	env.srv.Registry().Remove(cid)

	resp, body := env.get(t, "/api/session")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"isAuthenticated":true`) {
		t.Errorf("session not restored from storage: %s", body)
	}
}

func TestLoadingPlaceholder(t *testing.T) {
	env := newTestEnv(t)
	env.setToken(t, "stale")

	resp, page := env.get(t, "/dashboard")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(page, "Loading...") {
		t.Error("placeholder text missing")
	}
	if !strings.Contains(page, `content="0; url=/?from=%2Fdashboard"`) {
		t.Errorf("meta refresh missing from:\n%s", page)
	}
	env.expectMetric(t, `dashboard_route_decisions_total{action="redirect_home",source="render"} 1`)
}

func TestMissingCookieRemirroredForLiveSession(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-1")

	u, _ := url.Parse(env.ts.URL)
	env.client.Jar.SetCookies(u, []*http.Cookie{{Name: session.CookieName, Path: "/", MaxAge: -1}})
	if _, ok := env.cookie(session.CookieName); ok {
		t.Fatal("token cookie still in jar")
	}

	final, status := env.follow(t, "/", 4)
	if final != "/dashboard" || status != http.StatusOK {
		t.Errorf("settled on %s (%d), want /dashboard (200)", final, status)
	}
	if token, ok := env.cookie(session.CookieName); !ok || token != "tok-1" {
		t.Errorf("token cookie = %q, %v; want tok-1", token, ok)
	}
}

func TestStaleCookieSettlesOnHome(t *testing.T) {
	env := newTestEnv(t)
	env.setToken(t, "stale")

	final, status := env.follow(t, "/dashboard", 4)
	if final != "/?from=%2Fdashboard" || status != http.StatusOK {
		t.Errorf("settled on %s (%d), want /?from=%%2Fdashboard (200)", final, status)
	}
	if _, ok := env.cookie(session.CookieName); ok {
		t.Error("stale token cookie survived the placeholder")
	}
}

func TestCurrentUser(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "tok-4")
		env.backend.setUser(json.RawMessage(`{"id":"MEX-1","name":"Asha"}`), nil)

		resp, body := env.get(t, "/api/user")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body != `{"id":"MEX-1","name":"Asha"}` {
			t.Errorf("body = %s", body)
		}
		if env.backend.lastUserToken() != "tok-4" {
			t.Errorf("backend saw token %q", env.backend.lastUserToken())
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "tok-5")
		env.backend.setUser(nil, &backend.TransportError{Op: "me", StatusCode: http.StatusUnauthorized})

		resp, _ := env.get(t, "/api/user")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("backend down", func(t *testing.T) {
		env := newTestEnv(t)
		env.signIn(t, "tok-6")
		env.backend.setUser(nil, &backend.TransportError{Op: "me", StatusCode: http.StatusInternalServerError})

		resp, _ := env.get(t, "/api/user")
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", resp.StatusCode)
		}
	})

	t.Run("stale cookie", func(t *testing.T) {
		env := newTestEnv(t)
		env.setToken(t, "stale")

		resp, _ := env.get(t, "/api/user")
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.Post(env.ts.URL+"/api/auth/login", "application/json", strings.NewReader(`{"email":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCanonicalRedirect(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/dashboard/?tab=1")
	if resp.StatusCode != http.StatusPermanentRedirect {
		t.Fatalf("status = %d, want 308", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != "/dashboard?tab=1" {
		t.Errorf("Location = %q", got)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/nowhere")
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("unknown private path: status = %d, want filter redirect", resp.StatusCode)
	}

	env.setToken(t, "tok")
	resp, page := env.get(t, "/nowhere")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if !strings.Contains(page, "Page not found") {
		t.Error("not found page not rendered")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("healthz: %d %s", resp.StatusCode, body)
	}

	env.get(t, "/dashboard")
	resp, body = env.get(t, "/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		"dashboard_http_requests_total",
		`dashboard_route_decisions_total{action="redirect_home",source="filter"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewRequiresSessions(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without sessions succeeded")
	}
}
