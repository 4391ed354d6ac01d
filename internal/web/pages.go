package web

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/meghaexpress/hub-dashboard/pkg/assets"
	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/authforms"
	"github.com/meghaexpress/hub-dashboard/pkg/guard"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/routepath"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// EmbeddedAssets returns the built-in asset bundle.
func EmbeddedAssets() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var pageNames = []string{
	"auth",
	"dashboard",
	"loading",
	"about",
	"forgot_password",
	"welcome",
	"not_found",
}

func parseTemplates(resolver assets.Resolver) (map[string]*template.Template, error) {
	base, err := template.New("layout.html").
		Funcs(template.FuncMap{"asset": resolver.Asset}).
		ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

type pageData struct {
	Title    string
	Path     string
	Session  auth.Session
	State    authforms.State
	View     string
	From     string
	Redirect string
	Refresh  template.HTMLAttr
	Messages authforms.Messages
	LoginURL string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	t, ok := s.templates[name]
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if data.Path == "" {
		data.Path = r.URL.Path
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "template render failed", "page", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// checkRender runs the render-time guard. It reports false when it has
// already answered the request.
//
// A protected page reached without a live session (the cookie got past the
// filter but durable storage has no token) expires the stale cookie and
// renders the loading placeholder, which navigates home. An authenticated visitor on home or sign-up is
// redirected to the dashboard.
func (s *Server) checkRender(w http.ResponseWriter, r *http.Request, sess auth.Session) bool {
	action := guard.Check(s.policy, r.URL.Path, sess)
	s.metrics.RecordDecision("render", action.Kind.String())

	switch action.Kind {
	case routegate.RedirectDashboard:
		http.Redirect(w, r, action.Location, http.StatusSeeOther)
		return false
	case routegate.RedirectHome:
		if _, ok := s.sessions.TokenFromRequest(r); ok {
			s.sessions.Expire(w)
		}
		s.render(w, r, http.StatusOK, "loading", pageData{
			Title:    "Loading...",
			Redirect: action.Location,
			Refresh:  refreshAttr(action.Location),
			Session:  sess,
		})
		return false
	}
	return true
}

// refreshAttr builds the content attribute of a meta refresh. location
// comes from the route policy and is always a same-origin path.
func refreshAttr(location string) template.HTMLAttr {
	return template.HTMLAttr(`content="0; url=` + html.EscapeString(location) + `"`)
}

func (s *Server) authPage(w http.ResponseWriter, r *http.Request, view *authforms.View) {
	c, sess, err := s.clientContainer(w, r)
	if err != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.checkRender(w, r, sess) {
		return
	}

	state := s.forms.Controller(c.ClientID()).State()
	if view != nil {
		state.View = *view
	}
	s.render(w, r, http.StatusOK, "auth", pageData{
		Title:    "Authentication",
		Session:  sess,
		State:    state,
		View:     state.View.String(),
		From:     routepath.SafeRedirect(r.URL.Query().Get(routegate.FromParam), ""),
		Messages: s.forms.Messages(),
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.authPage(w, r, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	v := authforms.ViewSignIn
	s.authPage(w, r, &v)
}

func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	v := authforms.ViewSignUp
	s.authPage(w, r, &v)
}

func (s *Server) handleStatic(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess, err := s.clientContainer(w, r)
		if err != nil {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		s.render(w, r, http.StatusOK, name, pageData{
			Title:    title,
			Session:  sess,
			LoginURL: routegate.DefaultLoginPath,
		})
	}
}

func (s *Server) protectedPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sess, err := s.clientContainer(w, r)
		if err != nil {
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		if !s.checkRender(w, r, sess) {
			return
		}
		s.render(w, r, http.StatusOK, name, pageData{
			Title:   title,
			Session: sess,
		})
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.protectedPage("dashboard", "Dashboard")(w, r)
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	s.protectedPage("welcome", "Welcome")(w, r)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found", pageData{Title: "Not found"})
}
