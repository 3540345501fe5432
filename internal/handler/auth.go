package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/auth"
)

// AuthHandler serves signup, login and logout.
//
//   - GET/POST /signup → create an account, then send the user to log in
//   - GET/POST /login  → check credentials, set the session cookie
//   - GET /logout      → end the session and clear the cookie
type AuthHandler struct {
	auth    AuthService
	cookies auth.Cookies
	render  *Renderer
	logger  *slog.Logger
}

func NewAuthHandler(authService AuthService, cookies auth.Cookies, render *Renderer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		cookies: cookies,
		render:  render,
		logger:  logger,
	}
}

type credentialsData struct {
	Username string
	Next     string
}

// HandleSignupForm renders the signup page.
//
// HTTP: GET /signup
func (h *AuthHandler) HandleSignupForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "signup.html", Page{Title: "Sign Up", Data: credentialsData{}})
}

// HandleSignup creates the account and redirects to the login page.
//
// HTTP: POST /signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "The form could not be read."))
		return
	}
	username := r.PostForm.Get("username")

	if _, err := h.auth.Signup(r.Context(), username, r.PostForm.Get("password")); err != nil {
		h.render.FormError(w, r, err, "signup.html", Page{
			Title: "Sign Up",
			Data:  credentialsData{Username: username},
		})
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleLoginForm renders the login page. A next parameter means RequireAuth
// sent the user here, so the page says why.
//
// HTTP: GET /login?next=/create_book
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")

	p := Page{Title: "Log In", Data: credentialsData{Next: next}}
	if next != "" {
		p.Message = apperror.Unauthenticated().Message
	}
	h.render.Render(w, r, http.StatusOK, "login.html", p)
}

// HandleLogin checks the credentials, stores the session token in an
// HttpOnly cookie and redirects to next (local paths only) or home.
//
// HTTP: POST /login
//
// Both an unknown username and a wrong password answer 401 with the form
// re-rendered; the message says which it was.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "The form could not be read."))
		return
	}
	username := r.PostForm.Get("username")
	next := r.PostForm.Get("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}

	result, err := h.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) {
			h.render.Error(w, r, err)
			return
		}
		h.render.Render(w, r, http.StatusUnauthorized, "login.html", Page{
			Title: "Log In",
			Error: appErr.Message,
			Data:  credentialsData{Username: username, Next: next},
		})
		return
	}

	h.cookies.SetSession(w, result.Token, result.ExpiresAt)
	http.Redirect(w, r, auth.SafeRedirect(next), http.StatusSeeOther)
}

// HandleLogout deletes the session and clears the cookie. It works whether or
// not anyone is logged in.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.SessionToken(r)); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
	}

	h.cookies.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
