package authforms

import (
	"context"
	"log/slog"
	"sync"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/pkg/form"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
)

// Backend is the part of the backend client the forms use.
type Backend interface {
	Login(ctx context.Context, email, password string) (backend.LoginResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) (backend.RegisterResponse, error)
}

// Observer is told the outcome of every submission.
type Observer func(formName string, outcome Outcome)

// Service owns the shared form dependencies and the per-client controllers.
type Service struct {
	backend       Backend
	messages      Messages
	distinguish   bool
	newID         func() string
	dashboardPath string
	observer      Observer
	logger        *slog.Logger

	signIn *form.Schema
	signUp *form.Schema

	mu          sync.Mutex
	controllers map[string]*Controller
}

// Option configures a Service.
type Option func(*Service)

// WithMessages replaces the user-facing strings.
func WithMessages(m Messages) Option {
	return func(s *Service) {
		s.messages = m
	}
}

// WithDistinguishFailures makes sign-in report network and server errors
// with BackendUnavailable instead of the invalid-credentials message.
func WithDistinguishFailures(v bool) Option {
	return func(s *Service) {
		s.distinguish = v
	}
}

// WithIDGenerator sets the account id generator used by sign-up.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithDashboardPath sets where a successful sign-in lands when no valid
// from parameter was given.
func WithDashboardPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dashboardPath = path
		}
	}
}

// WithObserver sets the submission observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service.
func NewService(b Backend, opts ...Option) *Service {
	s := &Service{
		backend:       b,
		messages:      DefaultMessages(),
		newID:         AccountIDs(DefaultAccountIDPrefix),
		dashboardPath: routegate.DefaultDashboardPath,
		logger:        slog.Default(),
		controllers:   make(map[string]*Controller),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "authforms")
	s.signIn = SignInSchema(s.messages)
	s.signUp = SignUpSchema(s.messages)
	return s
}

// Messages returns the configured strings.
func (s *Service) Messages() Messages {
	return s.messages
}

// Controller returns the controller for clientID, creating it on first use.
func (s *Service) Controller(clientID string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.controllers[clientID]; ok {
		return c
	}
	c := newController(s, clientID)
	s.controllers[clientID] = c
	return c
}

// Forget drops the controller for clientID.
func (s *Service) Forget(clientID string) {
	s.mu.Lock()
	delete(s.controllers, clientID)
	s.mu.Unlock()
}

// Len returns the number of live controllers.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}

func (s *Service) observe(formName string, outcome Outcome) {
	if s.observer != nil {
		s.observer(formName, outcome)
	}
}
