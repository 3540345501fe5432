package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
)

var _ repository.FavoriteRepository = (*DB)(nil)

// AddFavorite records that the user favorites the book. Favoriting twice is a
// no-op thanks to INSERT OR IGNORE on the (user_id, book_id) primary key.
// An unknown book yields apperror.BookNotFound via the foreign key.
func (db *DB) AddFavorite(ctx context.Context, userID, bookID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (user_id, book_id) VALUES (?, ?)`,
		userID, bookID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.BookNotFound(bookID)
		}
		return fmt.Errorf("sqlite: favoriting book %d for user %d: %w", bookID, userID, err)
	}
	return nil
}

// RemoveFavorite deletes the edge if present. Removing an absent edge is not
// an error.
func (db *DB) RemoveFavorite(ctx context.Context, userID, bookID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = ? AND book_id = ?`,
		userID, bookID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unfavoriting book %d for user %d: %w", bookID, userID, err)
	}
	return nil
}

func (db *DB) IsFavorite(ctx context.Context, userID, bookID int64) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = ? AND book_id = ?)`,
		userID, bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite %d/%d: %w", userID, bookID, err)
	}
	return exists, nil
}

// ListFavoriteBooks returns the user's favorite books in the order they were
// favorited, with authors and genres resolved.
func (db *DB) ListFavoriteBooks(ctx context.Context, userID int64) ([]model.BookView, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookViewColumns+`
		 FROM favorites f
		 JOIN books b ON b.id = f.book_id
		 JOIN authors a ON a.id = b.author_id
		 WHERE f.user_id = ?
		 ORDER BY f.created_at, b.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites of user %d: %w", userID, err)
	}
	views, err := scanBookViews(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites of user %d: %w", userID, err)
	}

	if err := attachGenres(ctx, db.conn, views); err != nil {
		return nil, err
	}
	return views, nil
}
