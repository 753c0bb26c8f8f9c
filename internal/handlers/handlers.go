package handlers

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"despesas/internal/accounts"
	"despesas/internal/gateway"
	"despesas/internal/session"
	"despesas/internal/storage"
)

// busyMessage is shown whenever a request loses the race for the store
// lock; the operation is safe to retry as-is.
const busyMessage = "The store is busy, try again"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	manager     *accounts.Manager
	gateway     *gateway.Gateway
	sessions    *session.Context
	templateDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(manager *accounts.Manager, gw *gateway.Gateway, templateDir string) *Handlers {
	return &Handlers{
		manager:     manager,
		gateway:     gw,
		sessions:    manager.Sessions(),
		templateDir: templateDir,
	}
}

// RequireAuth wraps handlers that need an authenticated session.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.sessions.Current(); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin wraps handlers reserved for the administrator.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.sessions.Current()
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if !s.IsAdmin {
			http.Redirect(w, r, "/expenses", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginViewModel holds data for the login page.
type LoginViewModel struct {
	Error  string
	Notice string
}

// LoginForm renders the login page, with the registration form below it.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(); ok {
		http.Redirect(w, r, "/expenses", http.StatusFound)
		return
	}
	h.render(w, "login.html", LoginViewModel{})
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	identity := strings.TrimSpace(r.FormValue("email"))
	secret := r.FormValue("password")
	if identity == "" || secret == "" {
		h.render(w, "login.html", LoginViewModel{Error: "Email and password are required"})
		return
	}

	s, err := h.manager.Authenticate(identity, secret)
	if err != nil {
		h.render(w, "login.html", LoginViewModel{Error: loginMessage(err)})
		return
	}

	if s.IsAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/expenses", http.StatusFound)
}

// Register handles the registration form on the login page.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	identity := strings.TrimSpace(r.FormValue("email"))
	secret := r.FormValue("password")
	displayName := strings.TrimSpace(r.FormValue("display_name"))
	if identity == "" || secret == "" {
		h.render(w, "login.html", LoginViewModel{Error: "Email and password are required"})
		return
	}

	approved, err := h.manager.Register(identity, secret, displayName)
	if err != nil {
		h.render(w, "login.html", LoginViewModel{Error: registerMessage(err)})
		return
	}

	notice := "Registration received. Wait for administrator approval before signing in."
	if approved {
		notice = "Registration complete. You can sign in now."
	}
	h.render(w, "login.html", LoginViewModel{Notice: notice})
}

// Logout ends the current session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Logout(); err != nil {
		slog.Error("logout failed", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, accounts.ErrNotApproved):
		return "Registration pending administrator approval"
	case errors.Is(err, accounts.ErrUnknownIdentity), errors.Is(err, accounts.ErrBadSecret):
		return "Invalid email or password"
	case errors.Is(err, storage.ErrStoreBusy):
		return busyMessage
	default:
		slog.Error("login failed", "error", err)
		return "An error occurred. Please try again."
	}
}

func registerMessage(err error) string {
	switch {
	case errors.Is(err, accounts.ErrDuplicateIdentity):
		return "This email is already registered"
	case errors.Is(err, storage.ErrStoreBusy):
		return busyMessage
	default:
		slog.Error("registration failed", "error", err)
		return "An error occurred. Please try again."
	}
}

func (h *Handlers) render(w http.ResponseWriter, viewName string, data any) {
	tmpl, err := template.ParseFiles(
		filepath.Join(h.templateDir, "base.html"),
		filepath.Join(h.templateDir, viewName),
	)
	if err != nil {
		slog.Error("template parse failed", "view", viewName, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		slog.Error("template execution failed", "view", viewName, "error", err)
	}
}
