package web

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/meghaexpress/hub-dashboard/pkg/assets"
	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/authforms"
	"github.com/meghaexpress/hub-dashboard/pkg/authmw"
	"github.com/meghaexpress/hub-dashboard/pkg/middleware"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/routepath"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

// PublicAPIPaths are API prefixes reachable without a session: the
// sign-in, sign-up and session endpoints.
var PublicAPIPaths = []string{"/api/auth", "/api/session"}

// UserFetcher returns the signed-in user's profile from the backend.
type UserFetcher interface {
	CurrentUser(ctx context.Context, token string) (json.RawMessage, error)
}

// Config wires a Server.
type Config struct {
	Sessions *session.Store
	Forms    *authforms.Service

	// Users backs GET /api/user. Nil disables the endpoint.
	Users UserFetcher

	// Policy is the shared route classification. PublicAPIPaths are added
	// to it. Default: routegate.Default().
	Policy  *routegate.Policy
	Matcher *routegate.Matcher

	RegistryConfig auth.RegistryConfig
	Validators     []auth.Validator
	LoginPath      string

	// Assets defaults to the embedded bundle.
	Assets       assets.Source
	AssetsPrefix string
	AssetsCache  assets.CacheControl
	Resolver     assets.Resolver

	// Metrics may be nil. Gatherer, when set, is served on /metrics.
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer

	// Tracing, when non-nil, enables request spans with these options.
	Tracing []middleware.OTelOption

	// CheckOrigin validates websocket origins. Default: same origin.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// Server is the dashboard's HTTP front end.
type Server struct {
	sessions  *session.Store
	forms     *authforms.Service
	users     UserFetcher
	policy    *routegate.Policy
	filter    *authmw.Filter
	registry  *auth.Registry
	hub       *Hub
	metrics   *middleware.Metrics
	templates map[string]*template.Template
	router    chi.Router
	logger    *slog.Logger
	started   time.Time
}

// New builds a Server and its auth registry.
func New(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("web: Config.Sessions is required")
	}
	if cfg.Forms == nil {
		return nil, errors.New("web: Config.Forms is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = routegate.Default()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = routegate.NewMatcher()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.AssetsPrefix == "" {
		cfg.AssetsPrefix = assets.DefaultPrefix
	}
	if cfg.Assets == nil {
		cfg.Assets = assets.NewFSSource(EmbeddedAssets())
	}
	if cfg.Resolver == nil {
		cfg.Resolver = assets.NewPassthroughResolver(cfg.AssetsPrefix)
	}

	templates, err := parseTemplates(cfg.Resolver)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.With("component", "web")
	policy := cfg.Policy.Extend(routegate.AddPublicPaths(PublicAPIPaths...))

	s := &Server{
		sessions:  cfg.Sessions,
		forms:     cfg.Forms,
		users:     cfg.Users,
		policy:    policy,
		metrics:   cfg.Metrics,
		templates: templates,
		logger:    logger,
		started:   time.Now(),
	}

	s.hub = NewHub(HubConfig{
		CheckOrigin: cfg.CheckOrigin,
		Metrics:     cfg.Metrics,
		Logger:      cfg.Logger,
	})

	s.registry = auth.NewRegistry(cfg.Sessions, cfg.RegistryConfig,
		auth.WithNavigatorFactory(s.hub.Navigator),
		auth.WithContainerOptions(
			auth.WithValidators(cfg.Validators...),
			auth.WithLoginPath(cfg.LoginPath),
		),
		auth.WithEvictHook(cfg.Forms.Forget),
		auth.WithRegistryLogger(cfg.Logger),
	)

	s.filter = authmw.New(
		authmw.WithPolicy(policy),
		authmw.WithMatcher(cfg.Matcher),
		authmw.WithCookieName(cfg.Sessions.CookieName()),
		authmw.WithObserver(func(_ *http.Request, a routegate.Action) {
			s.metrics.RecordDecision("filter", a.Kind.String())
		}),
		authmw.WithLogger(cfg.Logger),
	)

	s.router = s.routes(cfg)
	return s, nil
}

func (s *Server) routes(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)
	if cfg.Tracing != nil {
		r.Use(middleware.Tracing(cfg.Tracing...))
	}
	r.Use(s.metrics.Middleware())
	r.Use(canonicalPaths)

	r.Get("/healthz", s.handleHealth)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws/guard", s.handleLive)

	prefix := cfg.AssetsPrefix
	r.Handle(prefix+"*", http.StripPrefix(prefix, assets.Handler(cfg.Assets, assets.HandlerConfig{
		CacheControl: cfg.AssetsCache,
		Headers:      map[string]string{"X-Content-Type-Options": "nosniff"},
		OnError: func(r *http.Request, err error) {
			s.logger.Warn("asset source failed", "path", r.URL.Path, "error", err)
		},
	})))

	r.Group(func(r chi.Router) {
		r.Use(s.filter.Middleware())

		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLogin)
		r.Get("/signup", s.handleSignUpPage)
		r.Get("/forgot-password", s.handleStatic("forgot_password", "Forgot password"))
		r.Get("/about", s.handleStatic("about", "About"))
		r.Get("/welcome", s.handleWelcome)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/dashboard/*", s.handleDashboard)

		r.Route("/api", func(r chi.Router) {
			r.Post("/auth/login", s.handleSignIn)
			r.Post("/auth/register", s.handleRegister)
			r.Post("/auth/logout", s.handleLogout)
			r.Post("/auth/view", s.handleView)
			r.Get("/session", s.handleSession)
			r.Get("/user", s.handleUser)
		})
	})

	r.NotFound(s.filter.Middleware()(http.HandlerFunc(s.handleNotFound)).ServeHTTP)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the per-client auth registry.
func (s *Server) Registry() *auth.Registry {
	return s.registry
}

// Hub returns the live connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Policy returns the effective route policy, API paths included.
func (s *Server) Policy() *routegate.Policy {
	return s.policy
}

// Shutdown closes live connections and drops in-memory auth state.
// Durable storage is left for the caller to close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.registry.Shutdown(ctx)
}

// clientContainer returns the caller's container after restoring it.
// A storage failure during restore is logged and the current (possibly
// unrestored) state is returned, so the next request retries.
//
// An authenticated container re-mirrors the token cookie when the request
// arrives without it, so the filter and the render-time guard agree.
func (s *Server) clientContainer(w http.ResponseWriter, r *http.Request) (*auth.Container, auth.Session, error) {
	clientID := s.sessions.ClientID(w, r)
	c, err := s.registry.Get(clientID)
	if err != nil {
		return nil, auth.Session{}, err
	}
	sess, err := c.Restore(r.Context(), w)
	if err != nil {
		s.logger.WarnContext(r.Context(), "session restore failed", "client_id", clientID, "error", err)
		sess = c.Session()
	}
	if sess.IsAuthenticated {
		if _, ok := s.sessions.TokenFromRequest(r); !ok {
			s.sessions.Mirror(w, sess.Token)
		}
	}
	return c, sess, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"containers": s.registry.Len(),
		"live":       s.hub.Len(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	})
}

// canonicalPaths redirects non-canonical paths ("//a", "/a/", "/a/./b")
// with 308 so the filter and handlers only ever see clean paths.
func canonicalPaths(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := routepath.Clean(r.URL.EscapedPath())
		if err != nil {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		if res.Changed {
			target := res.Path
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests logs one line per request at debug level, and server
// errors at error level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}
