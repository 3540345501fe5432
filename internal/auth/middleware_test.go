package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
)

type fakeResolver struct {
	users map[string]*model.User
	err   error
}

func (f *fakeResolver) CurrentUser(_ context.Context, token string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, apperror.Unauthenticated()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// whoAmI writes the context user's name, or "anonymous".
var whoAmI = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u, ok := UserFromContext(r.Context()); ok {
		w.Write([]byte(u.Username))
		return
	}
	w.Write([]byte("anonymous"))
})

func TestLoadSession(t *testing.T) {
	resolver := &fakeResolver{users: map[string]*model.User{
		"good-token": {ID: 1, Username: "johndoe"},
	}}
	handler := LoadSession(resolver, Cookies{}, testLogger())(whoAmI)

	tests := []struct {
		name        string
		cookie      string
		wantBody    string
		wantCleared bool
	}{
		{name: "no cookie", wantBody: "anonymous"},
		{name: "valid session", cookie: "good-token", wantBody: "johndoe"},
		{name: "stale session", cookie: "old-token", wantBody: "anonymous", wantCleared: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())

			cleared := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == SessionCookieName && c.MaxAge < 0 {
					cleared = true
				}
			}
			assert.Equal(t, tt.wantCleared, cleared)
		})
	}
}

func TestLoadSession_ResolverFailureIsAnonymous(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("database is locked")}
	handler := LoadSession(resolver, Cookies{}, testLogger())(whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "anything"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(whoAmI)

	t.Run("anonymous GET redirects with next", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/create_book?x=1", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fcreate_book%3Fx%3D1", rec.Header().Get("Location"))
	})

	t.Run("anonymous POST redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/favorite/1", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2F", rec.Header().Get("Location"))
	})

	t.Run("logged in passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/create_book", nil)
		req = req.WithContext(WithUser(req.Context(), &model.User{ID: 7, Username: "me1"}))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "me1", rec.Body.String())
	})
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	Cookies{Secure: true}.ClearSession(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestSafeRedirect(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/":                     "/",
		"/book/1":               "/book/1",
		"/create_book?x=1":      "/create_book?x=1",
		"https://evil.example":  "/",
		"//evil.example/path":   "/",
		"/\\evil.example":       "/",
		"javascript:alert(1)":   "/",
		"relative/path":         "/",
	}

	for in, want := range tests {
		assert.Equal(t, want, SafeRedirect(in), "SafeRedirect(%q)", in)
	}
}
