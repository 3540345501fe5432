// Package auth provides the building blocks of cookie sessions: signed session
// tokens, bcrypt password hashing and the HTTP middleware that turns a session
// cookie into a request-scoped user.
//
// SESSION FLOW OVERVIEW:
//  1. POST /login verifies the password and creates a row in the sessions table
//  2. The session ID is wrapped in a signed JWT and stored in the "session"
//     HttpOnly cookie
//  3. On every request, LoadSession validates the JWT, loads the session row
//     and puts the user in the request context
//  4. GET /logout deletes the session row, so the token is dead even if a copy
//     of the cookie survives
//
// The JWT only proves the session ID came from this server. Whether the
// session is still alive is decided by the database, which is what makes
// logout immediate.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "library-catalog"

// TokenService signs and verifies session tokens with an HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate signs a token that names sessionID and expires after ttl.
//
// The session ID goes in both "jti" (the token's own identity) and "sub". The
// token expiry matches the session row's expiry so a stale cookie fails
// validation before it ever reaches the database.
func (s *TokenService) Generate(sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token and returns the session ID it carries.
//
// Only HS256 is accepted. Without jwt.WithValidMethods an attacker could send
// a token with "alg":"none" and skip the signature entirely.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.ID == "" {
		return "", fmt.Errorf("auth: token has no session id")
	}

	return c.ID, nil
}
