package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/authforms"
	"github.com/meghaexpress/hub-dashboard/pkg/form"
	"github.com/meghaexpress/hub-dashboard/pkg/toast"
)

const maxBodyBytes = 64 << 10

// apiResponse is the body of every /api/auth response.
type apiResponse struct {
	authforms.Result
	Toasts  []toast.Toast    `json:"toasts,omitempty"`
	State   *authforms.State `json:"state,omitempty"`
	View    string           `json:"view,omitempty"`
	Session auth.Session     `json:"session"`
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeRawJSON(w http.ResponseWriter, status int, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// readValues reads a flat field map from a JSON object or a form body.
// Non-string JSON values are rejected.
func readValues(w http.ResponseWriter, r *http.Request) (form.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		values := form.Values{}
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		return values, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}
	values := make(form.Values, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}
	return values, nil
}

func statusFor(o authforms.Outcome) int {
	switch o {
	case authforms.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case authforms.OutcomeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// formRequest prepares a form submission: the caller's container, its
// controller and the submitted values. It answers the request itself on
// failure.
func (s *Server) formRequest(w http.ResponseWriter, r *http.Request) (*auth.Container, *authforms.Controller, form.Values, bool) {
	c, _, err := s.clientContainer(w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "unavailable"})
		return nil, nil, nil, false
	}
	values, err := readValues(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed request body"})
		return nil, nil, nil, false
	}
	return c, s.forms.Controller(c.ClientID()), values, true
}

func (s *Server) formResponse(w http.ResponseWriter, c *auth.Container, ctrl *authforms.Controller, res authforms.Result, rec *toast.Recorder) {
	state := ctrl.State()
	writeJSON(w, statusFor(res.Outcome), apiResponse{
		Result:  res,
		Toasts:  rec.Toasts(),
		State:   &state,
		View:    state.View.String(),
		Session: c.Session(),
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	c, ctrl, values, ok := s.formRequest(w, r)
	if !ok {
		return
	}
	var rec toast.Recorder
	res := ctrl.SignIn(r.Context(), w, c, &rec, values)
	s.formResponse(w, c, ctrl, res, &rec)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	c, ctrl, values, ok := s.formRequest(w, r)
	if !ok {
		return
	}
	var rec toast.Recorder
	res := ctrl.SignUp(r.Context(), &rec, values)
	s.formResponse(w, c, ctrl, res, &rec)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	c, _, err := s.clientContainer(w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "unavailable"})
		return
	}
	if err := c.Logout(r.Context(), w); err != nil {
		s.logger.WarnContext(r.Context(), "logout: durable remove failed", "client_id", c.ClientID(), "error", err)
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Result:  authforms.Result{Outcome: authforms.OutcomeSuccess, Redirect: c.LoginPath()},
		Session: c.Session(),
	})
}

// handleView toggles the home page form, or sets it when the body names
// a view.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	c, ctrl, values, ok := s.formRequest(w, r)
	if !ok {
		return
	}
	switch v := values.Get("view"); v {
	case "":
		ctrl.Toggle()
	default:
		if authforms.ParseView(v) == authforms.ViewSignUp {
			ctrl.ShowSignUp()
		} else {
			ctrl.ShowSignIn()
		}
	}
	state := ctrl.State()
	writeJSON(w, http.StatusOK, apiResponse{
		State:   &state,
		View:    state.View.String(),
		Session: c.Session(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	c, sess, err := s.clientContainer(w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "unavailable"})
		return
	}
	state := s.forms.Controller(c.ClientID()).State()
	writeJSON(w, http.StatusOK, apiResponse{
		State:   &state,
		View:    state.View.String(),
		Session: sess,
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	_, sess, err := s.clientContainer(w, r)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "unavailable"})
		return
	}
	if !sess.IsAuthenticated {
		err = auth.ErrUnauthorized
	} else {
		var user json.RawMessage
		user, err = s.users.CurrentUser(r.Context(), sess.Token)
		if err == nil {
			writeRawJSON(w, http.StatusOK, user)
			return
		}
		if backend.IsUnauthorized(err) {
			err = fmt.Errorf("%w: %w", auth.ErrSessionRevoked, err)
		}
	}

	if code, ok := auth.StatusCode(err); ok {
		writeJSON(w, code, apiError{Error: "unauthorized"})
		return
	}
	s.logger.WarnContext(r.Context(), "fetch current user failed", "error", err)
	writeJSON(w, http.StatusBadGateway, apiError{Error: "backend unavailable"})
}
