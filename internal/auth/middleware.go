package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "session"

// contextKey is unexported so no other package can read or shadow the
// values this package stores in a context.
type contextKey string

const userKey contextKey = "user"

// WithUser returns a copy of ctx carrying the logged-in user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the logged-in user, or (nil, false) for anonymous
// requests.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// SessionResolver turns a session token into the user it belongs to.
// service.AuthService implements it.
type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Cookies writes and clears the session cookie.
//
// HttpOnly keeps the token away from JavaScript. SameSite=Lax keeps the
// browser from attaching it to cross-site POSTs.
type Cookies struct {
	Secure bool
}

// SetSession stores token in the session cookie until expiresAt.
func (c Cookies) SetSession(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession tells the browser to drop the session cookie.
func (c Cookies) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken returns the raw session token from the request, or "".
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// LoadSession resolves the session cookie, if any, and stores the user in the
// request context. It never blocks a request: anonymous and stale sessions
// continue as anonymous, and a stale cookie is cleared on the way through.
func LoadSession(resolver SessionResolver, cookies Cookies, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := resolver.CurrentUser(r.Context(), token)
			if err != nil {
				if !errors.Is(err, apperror.ErrUnauthenticated) {
					logger.Error("resolving session",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				cookies.ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAuth sends anonymous requests to the login page instead of the
// wrapped handler. GET requests carry their own path in ?next= so the user
// lands back where they started after logging in.
//
// It must run after LoadSession.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginURL(r), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LoginURL is where RequireAuth redirects r. The next parameter is always
// present so the login page can show why the user ended up there.
func LoginURL(r *http.Request) string {
	next := "/"
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		next = r.URL.RequestURI()
	}
	return "/login?next=" + url.QueryEscape(next)
}

// SafeRedirect returns target if it is a local absolute path, otherwise "/".
// It keeps ?next= from becoming an open redirect.
func SafeRedirect(target string) string {
	if target == "" || target[0] != '/' {
		return "/"
	}
	// "//host" and "/\host" are treated as host-relative by browsers.
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return target
}
