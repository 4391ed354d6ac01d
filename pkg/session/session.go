package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meghaexpress/hub-dashboard/pkg/tokenstore"
)

const (
	// CookieName is the cookie the route filter reads.
	CookieName = "token"

	// StorageKey is the durable storage key holding the raw bearer string.
	StorageKey = "token"

	// ClientIDCookieName identifies the browser across requests.
	ClientIDCookieName = "dashboard_cid"

	// DefaultMaxAge is the token cookie lifetime in seconds (7 days).
	DefaultMaxAge = 604800

	clientIDMaxAge = 365 * 24 * 60 * 60
)

// ErrNoClientID is returned when an operation needs a client id and none was given.
var ErrNoClientID = errors.New("session: missing client id")

// CookieWriter receives cookies produced by the Store.
type CookieWriter interface {
	SetCookie(cookie *http.Cookie)
}

type responseCookies struct {
	w http.ResponseWriter
}

func (r responseCookies) SetCookie(cookie *http.Cookie) {
	http.SetCookie(r.w, cookie)
}

// ResponseCookies adapts an http.ResponseWriter to a CookieWriter.
// A nil writer yields a nil CookieWriter.
func ResponseCookies(w http.ResponseWriter) CookieWriter {
	if w == nil {
		return nil
	}
	return responseCookies{w: w}
}

// Store writes a session token to durable storage and the cookie.
type Store struct {
	storage  tokenstore.Store
	cookie   string
	maxAge   int
	domain   string
	secure   bool
	httpOnly bool
}

// Option configures a Store.
type Option func(*Store)

// WithCookieName overrides the token cookie name.
func WithCookieName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.cookie = name
		}
	}
}

// WithMaxAge sets the token cookie lifetime in seconds.
// Default: DefaultMaxAge.
func WithMaxAge(seconds int) Option {
	return func(s *Store) {
		if seconds > 0 {
			s.maxAge = seconds
		}
	}
}

// WithCookieDomain sets the Domain attribute on written cookies.
func WithCookieDomain(domain string) Option {
	return func(s *Store) {
		s.domain = domain
	}
}

// WithSecureCookies marks written cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Store) {
		s.secure = secure
	}
}

// NewStore creates a Store over the given durable storage.
func NewStore(storage tokenstore.Store, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		cookie:   CookieName,
		maxAge:   DefaultMaxAge,
		httpOnly: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CookieName returns the name of the token cookie.
func (s *Store) CookieName() string {
	return s.cookie
}

// MaxAge returns the token cookie lifetime in seconds.
func (s *Store) MaxAge() int {
	return s.maxAge
}

// Set persists token for clientID and mirrors it into the cookie.
func (s *Store) Set(ctx context.Context, w http.ResponseWriter, clientID, token string) error {
	return s.SetTo(ctx, ResponseCookies(w), clientID, token)
}

// SetTo is Set with an explicit CookieWriter.
func (s *Store) SetTo(ctx context.Context, cw CookieWriter, clientID, token string) error {
	if clientID == "" {
		return ErrNoClientID
	}
	if err := s.storage.Set(ctx, clientID, StorageKey, token, time.Time{}); err != nil {
		return fmt.Errorf("session: persist token: %w", err)
	}
	s.MirrorTo(cw, token)
	return nil
}

// Clear removes the durable entry for clientID and expires the cookie.
// The cookie is expired even when the durable remove fails.
func (s *Store) Clear(ctx context.Context, w http.ResponseWriter, clientID string) error {
	return s.ClearTo(ctx, ResponseCookies(w), clientID)
}

// ClearTo is Clear with an explicit CookieWriter.
func (s *Store) ClearTo(ctx context.Context, cw CookieWriter, clientID string) error {
	s.ExpireTo(cw)
	if clientID == "" {
		return ErrNoClientID
	}
	if err := s.storage.Delete(ctx, clientID, StorageKey); err != nil {
		return fmt.Errorf("session: remove token: %w", err)
	}
	return nil
}

// Load reads the durable token for clientID.
func (s *Store) Load(ctx context.Context, clientID string) (string, bool, error) {
	if clientID == "" {
		return "", false, ErrNoClientID
	}
	token, ok, err := s.storage.Get(ctx, clientID, StorageKey)
	if err != nil {
		return "", false, fmt.Errorf("session: load token: %w", err)
	}
	if !ok || token == "" {
		return "", false, nil
	}
	return token, true, nil
}

// Mirror writes the token cookie without touching durable storage.
func (s *Store) Mirror(w http.ResponseWriter, token string) {
	s.MirrorTo(ResponseCookies(w), token)
}

// MirrorTo is Mirror with an explicit CookieWriter. A nil writer is a no-op.
func (s *Store) MirrorTo(cw CookieWriter, token string) {
	if cw == nil {
		return
	}
	cw.SetCookie(s.newCookie(token, s.maxAge))
}

// Expire expires the token cookie without touching durable storage.
func (s *Store) Expire(w http.ResponseWriter) {
	s.ExpireTo(ResponseCookies(w))
}

// ExpireTo is Expire with an explicit CookieWriter. A nil writer is a no-op.
func (s *Store) ExpireTo(cw CookieWriter) {
	if cw == nil {
		return
	}
	cw.SetCookie(s.newCookie("", -1))
}

// TokenFromRequest returns the token cookie carried by r.
func (s *Store) TokenFromRequest(r *http.Request) (string, bool) {
	return TokenFromRequest(r, s.cookie)
}

// ClientID returns the client id carried by r, issuing a new one on w when
// the request has none or carries a malformed value.
func (s *Store) ClientID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := ClientIDFromRequest(r); ok {
		return id
	}
	id := uuid.NewString()
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     ClientIDCookieName,
			Value:    id,
			Path:     "/",
			Domain:   s.domain,
			MaxAge:   clientIDMaxAge,
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return id
}

// Close closes the underlying durable storage.
func (s *Store) Close() error {
	return s.storage.Close()
}

func (s *Store) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: s.httpOnly,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest returns the named cookie's value if present and non-empty.
func TokenFromRequest(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ClientIDFromRequest returns the client id cookie if it holds a valid UUID.
func ClientIDFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(ClientIDCookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
