package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/authforms"
	"github.com/meghaexpress/hub-dashboard/pkg/guard"
	"github.com/meghaexpress/hub-dashboard/pkg/middleware"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/routepath"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

// Live message types.
const (
	MsgPath     = "path"
	MsgView     = "view"
	MsgNavigate = "navigate"
	MsgSession  = "session"
	MsgState    = "state"
	MsgError    = "error"
)

// Message is the JSON frame exchanged on /ws/guard.
//
// Clients send {"type":"path","path":"/dashboard"} whenever their location
// changes. The server answers with navigate, session and state frames.
type Message struct {
	Type    string           `json:"type"`
	Path    string           `json:"path,omitempty"`
	View    string           `json:"view,omitempty"`
	Session *auth.Session    `json:"session,omitempty"`
	State   *authforms.State `json:"state,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// ErrHubClosed is returned by Upgrade after Close.
var ErrHubClosed = errors.New("web: live hub is closed")

// HubConfig configures a Hub.
type HubConfig struct {
	// CheckOrigin validates the upgrade request. Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration

	// SendBuffer is the per-connection outbound queue length. Frames that
	// do not fit are dropped.
	SendBuffer int

	Metrics *middleware.Metrics
	Logger  *slog.Logger
}

func (c *HubConfig) applyDefaults() {
	if c.CheckOrigin == nil {
		c.CheckOrigin = SameOriginCheck
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.ReadTimeout {
		c.PingInterval = c.ReadTimeout * 9 / 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host equals the Host header.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// Hub tracks live connections per client id.
type Hub struct {
	cfg      HubConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.RWMutex
	conns  map[string]map[*Conn]struct{}
	closed bool
}

// NewHub creates a Hub.
func NewHub(cfg HubConfig) *Hub {
	cfg.applyDefaults()
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		logger: cfg.Logger.With("component", "live"),
		conns:  make(map[string]map[*Conn]struct{}),
	}
}

// Navigator returns a Navigator that sends a navigate frame to every live
// connection of clientID. It is a no-op when the client has none.
func (h *Hub) Navigator(clientID string) auth.Navigator {
	return auth.NavigatorFunc(func(path string) {
		h.Send(clientID, Message{Type: MsgNavigate, Path: path})
	})
}

// Send queues msg on every connection of clientID and returns how many
// connections accepted it.
func (h *Hub) Send(clientID string, msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode live message", "type", msg.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.conns[clientID]))
	for c := range h.conns[clientID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if c.enqueue(data) {
			n++
		}
	}
	return n
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

// Connections returns the number of open connections for clientID.
func (h *Hub) Connections(clientID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[clientID])
}

// Close closes every connection and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Conn
	for _, set := range h.conns {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

// Upgrade upgrades the request and registers the connection under
// clientID. On failure the upgrader has already written the response.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request, clientID string) (*Conn, error) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return nil, ErrHubClosed
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.cfg.Metrics.RecordWebSocketError("upgrade")
		return nil, err
	}

	c := &Conn{
		hub:      h,
		clientID: clientID,
		ws:       ws,
		send:     make(chan []byte, h.cfg.SendBuffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return nil, ErrHubClosed
	}
	set, ok := h.conns[clientID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[clientID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.cfg.Metrics.LiveConnected()
	h.logger.Debug("live connection opened", "client_id", clientID)
	return c, nil
}

func (h *Hub) remove(c *Conn) {
	h.mu.Lock()
	set := h.conns[c.clientID]
	_, ok := set[c]
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.clientID)
	}
	h.mu.Unlock()

	if ok {
		h.cfg.Metrics.LiveDisconnected()
		h.logger.Debug("live connection closed", "client_id", c.clientID)
	}
}

// Conn is one live websocket. Writes go through send and are performed by
// the write loop only.
type Conn struct {
	hub      *Hub
	clientID string
	ws       *websocket.Conn
	send     chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// Send queues msg. Frames are dropped when the queue is full or the
// connection is closed.
func (c *Conn) Send(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		c.hub.cfg.Metrics.RecordWebSocketError("overflow")
		c.hub.logger.Warn("live send queue full, dropping frame", "client_id", c.clientID)
		return false
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
		c.hub.remove(c)
	})
}

// Run starts the write loop and reads frames until the connection ends,
// handing each decoded frame to onMessage. It blocks.
func (c *Conn) Run(onMessage func(Message)) {
	defer c.close()
	go c.writeLoop()

	cfg := c.hub.cfg
	c.ws.SetReadLimit(4096)
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				cfg.Metrics.RecordWebSocketError("read")
				c.hub.logger.Warn("live read error", "client_id", c.clientID, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			cfg.Metrics.RecordWebSocketError("decode")
			c.Send(Message{Type: MsgError, Error: "malformed frame"})
			continue
		}
		onMessage(msg)
	}
}

func (c *Conn) writeLoop() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				cfg.Metrics.RecordWebSocketError("write")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// handleLive serves /ws/guard. The connection runs a route guard bound to
// the caller's container: every path the client reports and every session
// change is classified, and redirects are pushed back as navigate frames.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	clientID, ok := session.ClientIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing client id", http.StatusBadRequest)
		return
	}
	container, err := s.registry.Get(clientID)
	if err != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if _, err := container.Restore(r.Context(), nil); err != nil {
		s.logger.WarnContext(r.Context(), "session restore failed", "client_id", clientID, "error", err)
	}

	conn, err := s.hub.Upgrade(w, r, clientID)
	if err != nil {
		s.logger.Debug("live upgrade failed", "client_id", clientID, "error", err)
		return
	}

	ctrl := s.forms.Controller(clientID)
	effect := guard.New(s.policy,
		auth.NavigatorFunc(func(path string) {
			conn.Send(Message{Type: MsgNavigate, Path: path})
		}),
		guard.WithObserver(func(_ guard.Key, a routegate.Action) {
			s.metrics.RecordDecision("guard", a.Kind.String())
		}),
	)

	sess := container.Session()
	conn.Send(Message{Type: MsgSession, Session: &sess})
	state := ctrl.State()
	conn.Send(Message{Type: MsgState, State: &state, View: state.View.String()})

	stopSession := container.Subscribe(func(sess auth.Session) {
		conn.Send(Message{Type: MsgSession, Session: &sess})
	})
	stopGuard := effect.Watch(container)
	stopState := ctrl.Subscribe(func(st authforms.State) {
		conn.Send(Message{Type: MsgState, State: &st, View: st.View.String()})
	})
	defer func() {
		stopState()
		stopGuard()
		stopSession()
	}()

	conn.Run(func(msg Message) {
		container.Touch()
		switch msg.Type {
		case MsgPath:
			path, err := routepath.NavPath(msg.Path)
			if err != nil {
				conn.Send(Message{Type: MsgError, Error: "invalid path"})
				return
			}
			effect.SetPath(path)
		case MsgView:
			if authforms.ParseView(msg.View) == authforms.ViewSignUp {
				ctrl.ShowSignUp()
			} else {
				ctrl.ShowSignIn()
			}
		default:
			conn.Send(Message{Type: MsgError, Error: "unknown message type"})
		}
	})
}
