package web

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(e.ts.URL)
	var parts []string
	for _, c := range e.client.Jar.Cookies(u) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	header := http.Header{}
	if len(parts) > 0 {
		header.Set("Cookie", strings.Join(parts, "; "))
	}

	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws/guard"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(Message) bool) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isType(typ string) func(Message) bool {
	return func(m Message) bool { return m.Type == typ }
}

func isNavigate(path string) func(Message) bool {
	return func(m Message) bool { return m.Type == MsgNavigate && m.Path == path }
}

func TestLiveGuardRedirectsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	conn := env.dial(t)
	first := readUntil(t, conn, isType(MsgSession))
	if first.Session == nil || first.Session.IsAuthenticated {
		t.Fatalf("initial session = %+v", first.Session)
	}

	if err := conn.WriteJSON(Message{Type: MsgPath, Path: "/dashboard"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, isNavigate("/?from=%2Fdashboard"))
}

func TestLiveGuardOnLogout(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-live")

	conn := env.dial(t)
	first := readUntil(t, conn, isType(MsgSession))
	if first.Session == nil || !first.Session.IsAuthenticated {
		t.Fatalf("initial session = %+v", first.Session)
	}

	cid, _ := env.cookie(session.ClientIDCookieName)
	if n := env.srv.Hub().Connections(cid); n != 1 {
		t.Fatalf("Connections = %d, want 1", n)
	}

	if err := conn.WriteJSON(Message{Type: MsgPath, Path: "/dashboard"}); err != nil {
		t.Fatal(err)
	}
	env.postJSON(t, "/api/auth/logout", nil)

	readUntil(t, conn, func(m Message) bool {
		return m.Type == MsgSession && m.Session != nil && !m.Session.IsAuthenticated
	})
	readUntil(t, conn, isNavigate("/login"))
}

func TestLiveAuthenticatedOnHome(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "tok-home")

	conn := env.dial(t)
	readUntil(t, conn, isType(MsgSession))
	if err := conn.WriteJSON(Message{Type: MsgPath, Path: "/"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, isNavigate("/dashboard"))
}

func TestLiveViewAndState(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	conn := env.dial(t)
	readUntil(t, conn, isType(MsgState))

	if err := conn.WriteJSON(Message{Type: MsgView, View: "sign_up"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, func(m Message) bool { return m.Type == MsgState && m.View == "sign_up" })
	if msg.State == nil {
		t.Fatal("state frame without state")
	}
}

func TestLiveRejectsInvalidPath(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	conn := env.dial(t)
	readUntil(t, conn, isType(MsgState))

	if err := conn.WriteJSON(Message{Type: MsgPath, Path: "https://evil.example/"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, conn, isType(MsgError))
	if msg.Error != "invalid path" {
		t.Errorf("error = %q", msg.Error)
	}
}

func TestLiveRequiresClientID(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/guard"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial without client id succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("resp = %v, want 400", resp)
	}
}

func TestLiveRejectsCrossOrigin(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	u, _ := url.Parse(env.ts.URL)
	header := http.Header{}
	for _, c := range env.client.Jar.Cookies(u) {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	header.Set("Origin", "https://evil.example")

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws/guard"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatal("cross-origin dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %v, want 403", resp)
	}
}

func TestSameOriginCheck(t *testing.T) {
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "example.com", true},
		{"https://example.com", "example.com", true},
		{"http://localhost:8080", "localhost:8080", true},
		{"https://evil.com", "example.com", false},
		{"https://example.com:8443", "example.com", false},
		{"://bad", "example.com", false},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/ws/guard", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := SameOriginCheck(r); got != tt.want {
			t.Errorf("SameOriginCheck(origin=%q, host=%q) = %v, want %v", tt.origin, tt.host, got, tt.want)
		}
	}
}

func TestHubNavigatorWithoutConnections(t *testing.T) {
	h := NewHub(HubConfig{})
	h.Navigator("nobody").Navigate("/login")
	if n := h.Send("nobody", Message{Type: MsgNavigate, Path: "/"}); n != 0 {
		t.Errorf("Send = %d, want 0", n)
	}
	h.Close()
	if h.Len() != 0 {
		t.Errorf("Len = %d after Close", h.Len())
	}
}
