// Package service contains the business logic of the catalog.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → decodes forms, renders pages, redirects
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services depend on repository interfaces, never on *sqlite.DB, so tests
// run against small in-memory fakes.
//
// THE VIEWER:
// Operations that need a logged-in user read it from the context
// (auth.UserFromContext), where the session middleware put it. A missing
// viewer is apperror.Unauthenticated; the handler turns that into a redirect
// to the login page.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
	"github.com/sakif/library-catalog/internal/validation"
)

// Credentials is the signup form. Usernames are case-sensitive and may
// contain spaces, but not characters that would break /profile/{username}.
// Passwords are bounded by bcrypt's input limit, counted in bytes.
type Credentials struct {
	Username string `form:"username" validate:"required,max=80,excludesall=/?#%"`
	Password string `form:"password" validate:"required,maxbytes=72"`
}

// AuthService registers users, checks passwords and manages sessions.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	validate   *validation.Validator
	sessionTTL time.Duration
	logger     *slog.Logger

	now func() time.Time
}

// NewAuthService wires an AuthService. sessionTTL is how long a login lasts.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validate *validation.Validator,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		passwords:  passwords,
		validate:   validate,
		sessionTTL: sessionTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// AuthResult is what a successful login hands back to the handler: the user,
// the signed token for the cookie and when it stops working.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Signup creates an account.
//
// The pre-check gives the common case a clean error without hashing a
// password. It is not trusted on its own: two concurrent signups can both
// pass it, and the UNIQUE constraint then makes the second CreateUser fail
// with the same UsernameTaken error.
func (s *AuthService) Signup(ctx context.Context, username, password string) (*model.User, error) {
	creds := Credentials{Username: strings.TrimSpace(username), Password: password}
	if err := s.validate.Validate(creds); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByUsername(ctx, creds.Username); err == nil {
		return nil, apperror.UsernameTaken()
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking username %q: %w", creds.Username, err)
	}

	hash, err := s.passwords.Hash(creds.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Username: creds.Username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", creds.Username, err)
	}

	s.logger.Info("user signed up",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the credentials and opens a session.
//
// Unknown usernames and wrong passwords get different errors, each with the
// message the login form shows.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	// bcrypt refuses to compare anything over its limit, and no stored hash
	// could match it anyway.
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperror.PasswordMismatch()
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("username", username))
			return nil, apperror.PasswordMismatch()
		}
		return nil, fmt.Errorf("service/auth: verifying password for %q: %w", username, err)
	}

	session := &model.Session{
		UserID:    user.ID,
		CreatedAt: s.now().UTC(),
		ExpiresAt: s.now().Add(s.sessionTTL).UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("service/auth: creating session for user %d: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(session.ID, s.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user logged in",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Logout ends the session the token names. It never fails for a bad token:
// logging out of an empty, forged, expired or already-closed session is a
// no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("logout with unusable token", slog.String("error", err.Error()))
		return nil
	}

	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("service/auth: deleting session: %w", err)
	}
	return nil
}

// CurrentUser resolves a session token to its user. Any reason the token
// does not lead to a live session yields apperror.Unauthenticated; an expired
// session row is deleted on the way.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperror.Unauthenticated()
	}

	sessionID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, apperror.Unauthenticated()
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: loading session: %w", err)
	}

	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
			s.logger.Error("deleting expired session",
				slog.String("sessionID", session.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthenticated()
	}

	user, err := s.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated()
		}
		return nil, fmt.Errorf("service/auth: loading user %d: %w", session.UserID, err)
	}
	return user, nil
}

// GetUserByUsername returns apperror.ErrUserNotFound for unknown names.
func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.UserNotFound()
		}
		return nil, fmt.Errorf("service/auth: fetching user %q: %w", username, err)
	}
	return user, nil
}

// PurgeExpiredSessions deletes every session past its expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("service/auth: purging sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", slog.Int64("count", n))
	}
	return n, nil
}

// viewer returns the logged-in user from ctx or apperror.Unauthenticated.
func viewer(ctx context.Context) (*model.User, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, apperror.Unauthenticated()
	}
	return user, nil
}
