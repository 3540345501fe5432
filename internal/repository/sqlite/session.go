package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
)

var _ repository.SessionRepository = (*DB)(nil)

// CreateSession stores a new session. The ID is a fresh xid unless the caller
// already set one; CreatedAt defaults to now.
//
// expires_at is stored as unix seconds so expiry checks are plain integer
// comparisons in SQL.
func (db *DB) CreateSession(ctx context.Context, session *model.Session) error {
	if session.ID == "" {
		session.ID = xid.New().String()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating session for user %d: %w", session.UserID, err)
	}
	return nil
}

// GetSession loads a session by ID. Expired sessions are returned as-is;
// deciding what expiry means is the service's job.
func (db *DB) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var (
		s         model.Session
		expiresAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}

// DeleteSession removes a session. Unknown IDs are not an error, which
// makes logout idempotent.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose expiry is at or before
// now and returns how many were removed.
func (db *DB) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
