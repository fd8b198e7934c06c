package server

import (
	"net/http"
	"strings"

	"blogfront/identity"
	"blogfront/pkg/blog"
)

type authView struct {
	Title  string
	Action string
	Email  string
	Error  string
}

// handleLogin signs a reader in through the identity provider.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.handleSignIn(w, r, authView{Title: "Log in", Action: "/login"}, "", "/")
}

// handleAdminLogin signs an administrator in. The admin role flag is set
// locally by the client after a successful sign-in; it is a UI
// convenience, not a security boundary.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	s.handleSignIn(w, r, authView{Title: "Admin log in", Action: "/admin-login"}, "admin", "/admin")
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request, view authView, role, target string) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "auth.tmpl", view)
	case http.MethodPost:
		email, password, ok := s.credentials(w, r, &view)
		if !ok {
			return
		}

		account, err := s.identity.SignIn(r.Context(), email, password)
		if err != nil {
			s.renderAuthError(w, r, view, email, err)
			return
		}
		s.storeSession(w, r, account, role, target)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRegister creates a new account and signs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	view := authView{Title: "Register", Action: "/register"}
	switch r.Method {
	case http.MethodGet:
		s.render(w, "auth.tmpl", view)
	case http.MethodPost:
		email, password, ok := s.credentials(w, r, &view)
		if !ok {
			return
		}

		account, err := s.identity.SignUp(r.Context(), email, password)
		if err != nil {
			s.renderAuthError(w, r, view, email, err)
			return
		}
		s.storeSession(w, r, account, "", "/")
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// credentials validates the form before any network call is made.
func (s *Server) credentials(w http.ResponseWriter, r *http.Request, view *authView) (email, password string, ok bool) {
	email = strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password = r.FormValue("password")
	if email == "" || password == "" {
		view.Email = email
		view.Error = "Email and password are required."
		s.render(w, "auth.tmpl", *view)
		return "", "", false
	}
	return email, password, true
}

func (s *Server) renderAuthError(w http.ResponseWriter, r *http.Request, view authView, email string, err error) {
	view.Email = email
	if identity.IsAuthError(err) {
		view.Error = "Invalid email or password."
	} else {
		s.logger.Error("Identity provider request failed", "error", err)
		view.Error = "Sign-in is unavailable right now. Please try again."
	}
	s.render(w, "auth.tmpl", view)
}

func (s *Server) storeSession(w http.ResponseWriter, r *http.Request, account *identity.Account, role, target string) {
	sess := blog.Session{
		Token:     account.Token,
		Role:      role,
		UserEmail: account.Email,
		UserID:    account.UserID,
	}
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.logger.Error("Failed to store session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleLogout clears token, role, email and id, then forces a full
// navigation back to the home view.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(r.Context()); err != nil {
		s.logger.Error("Failed to clear session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
