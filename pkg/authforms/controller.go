package authforms

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/form"
	"github.com/meghaexpress/hub-dashboard/pkg/routepath"
	"github.com/meghaexpress/hub-dashboard/pkg/toast"
)

// Form names reported to observers.
const (
	FormSignIn = "sign_in"
	FormSignUp = "sign_up"
)

// View selects which form the home page shows.
type View int32

const (
	ViewSignIn View = iota
	ViewSignUp
)

func (v View) String() string {
	if v == ViewSignUp {
		return "sign_up"
	}
	return "sign_in"
}

// ParseView maps "sign_up"/"signup" to ViewSignUp and anything else to ViewSignIn.
func ParseView(s string) View {
	switch s {
	case "sign_up", "signup":
		return ViewSignUp
	default:
		return ViewSignIn
	}
}

// Outcome classifies a submission.
type Outcome string

const (
	OutcomeInvalid  Outcome = "invalid"
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// Result is returned by SignIn and SignUp.
type Result struct {
	Outcome Outcome     `json:"outcome"`
	Errors  form.Errors `json:"errors,omitempty"`

	// Redirect is where a successful sign-in should navigate.
	Redirect string `json:"redirect,omitempty"`
}

// State is the view state of one client's forms.
type State struct {
	View          View `json:"-"`
	SignInLoading bool `json:"signInLoading"`
	SignUpLoading bool `json:"signUpLoading"`
}

// Disabled reports whether the visible form's inputs and submit control
// must be disabled.
func (s State) Disabled() bool {
	if s.View == ViewSignUp {
		return s.SignUpLoading
	}
	return s.SignInLoading
}

// Controller holds one client's form state.
type Controller struct {
	svc      *Service
	clientID string

	view          atomic.Int32
	signInLoading atomic.Bool
	signUpLoading atomic.Bool

	subMu   sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

func newController(s *Service, clientID string) *Controller {
	return &Controller{
		svc:      s,
		clientID: clientID,
		subs:     make(map[uint64]func(State)),
	}
}

// State returns the current view state.
func (c *Controller) State() State {
	return State{
		View:          View(c.view.Load()),
		SignInLoading: c.signInLoading.Load(),
		SignUpLoading: c.signUpLoading.Load(),
	}
}

// ShowSignUp switches the view to the sign-up form.
func (c *Controller) ShowSignUp() {
	c.setView(ViewSignUp)
}

// ShowSignIn switches the view to the sign-in form.
func (c *Controller) ShowSignIn() {
	c.setView(ViewSignIn)
}

// Toggle flips the view and returns the new one.
func (c *Controller) Toggle() View {
	for {
		old := c.view.Load()
		next := int32(ViewSignUp)
		if View(old) == ViewSignUp {
			next = int32(ViewSignIn)
		}
		if c.view.CompareAndSwap(old, next) {
			c.notify()
			return View(next)
		}
	}
}

func (c *Controller) setView(v View) {
	if View(c.view.Swap(int32(v))) != v {
		c.notify()
	}
}

// Subscribe registers fn for state changes. The returned function removes it.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) notify() {
	s := c.State()
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (c *Controller) setLoading(flag *atomic.Bool, v bool) {
	flag.Store(v)
	c.notify()
}

// SignIn validates values, posts them to the backend and, on success,
// logs the container in. Toasts go to e. The from value, when it is a safe
// relative path, becomes the redirect target.
func (c *Controller) SignIn(ctx context.Context, w http.ResponseWriter, container *auth.Container, e toast.Emitter, values form.Values) Result {
	res := c.signIn(ctx, w, container, e, values)
	c.svc.observe(FormSignIn, res.Outcome)
	return res
}

func (c *Controller) signIn(ctx context.Context, w http.ResponseWriter, container *auth.Container, e toast.Emitter, values form.Values) Result {
	m := c.svc.messages
	if errs := c.svc.signIn.Validate(values); errs != nil {
		return Result{Outcome: OutcomeInvalid, Errors: errs}
	}

	c.setLoading(&c.signInLoading, true)
	defer c.setLoading(&c.signInLoading, false)

	resp, err := c.svc.backend.Login(ctx, values.Get(FieldEmail), values.Get(FieldPassword))
	if err != nil {
		c.svc.logger.Warn("sign-in request failed", "client_id", c.clientID, "error", err)
		toast.Error(e, c.failureMessage(err))
		return Result{Outcome: OutcomeFailed}
	}

	if err := resp.Err(); err != nil {
		c.svc.logger.Info("sign-in rejected", "client_id", c.clientID, "error", err)
		toast.Error(e, rejectionMessage(err, m.SignInFailed))
		return Result{Outcome: OutcomeRejected}
	}

	if err := container.Login(ctx, w, resp.Token); err != nil {
		c.svc.logger.Warn("sign-in: storing session failed", "client_id", c.clientID, "error", err)
		toast.Error(e, m.SignInFailed)
		return Result{Outcome: OutcomeFailed}
	}

	toast.Success(e, m.SignInSuccess)
	return Result{
		Outcome:  OutcomeSuccess,
		Redirect: routepath.SafeRedirect(values.Get(FieldFrom), c.svc.dashboardPath),
	}
}

func (c *Controller) failureMessage(err error) string {
	m := c.svc.messages
	if !c.svc.distinguish {
		return m.SignInFailed
	}
	var te *backend.TransportError
	if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 {
		return m.SignInFailed
	}
	return m.BackendUnavailable
}

// rejectionMessage returns the backend's own message for a rejection, or
// fallback when it sent none.
func rejectionMessage(err error, fallback string) string {
	var rejected *backend.RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return fallback
}

// SignUp validates values and registers the account. On success the view
// switches to the sign-in form.
func (c *Controller) SignUp(ctx context.Context, e toast.Emitter, values form.Values) Result {
	res := c.signUp(ctx, e, values)
	c.svc.observe(FormSignUp, res.Outcome)
	return res
}

func (c *Controller) signUp(ctx context.Context, e toast.Emitter, values form.Values) Result {
	m := c.svc.messages
	if errs := c.svc.signUp.Validate(values); errs != nil {
		return Result{Outcome: OutcomeInvalid, Errors: errs}
	}

	c.setLoading(&c.signUpLoading, true)
	defer c.setLoading(&c.signUpLoading, false)

	resp, err := c.svc.backend.Register(ctx, backend.RegisterRequest{
		ID:       c.svc.newID(),
		Name:     values.Get(FieldName),
		Email:    values.Get(FieldEmail),
		Password: values.Get(FieldPassword),
	})
	if err != nil {
		c.svc.logger.Warn("sign-up request failed", "client_id", c.clientID, "error", err)
		toast.Error(e, m.SignUpFailed)
		return Result{Outcome: OutcomeFailed}
	}

	if err := resp.Err(); err != nil {
		c.svc.logger.Info("sign-up rejected", "client_id", c.clientID, "error", err)
		toast.Error(e, rejectionMessage(err, m.SignUpFailed))
		return Result{Outcome: OutcomeRejected}
	}

	toast.Success(e, m.SignUpSuccess)
	c.ShowSignIn()
	return Result{Outcome: OutcomeSuccess}
}
