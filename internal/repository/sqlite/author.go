package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
)

var _ repository.AuthorRepository = (*DB)(nil)

// CreateAuthor inserts an author. Names are not unique: two authors may
// share a name.
func (db *DB) CreateAuthor(ctx context.Context, author *model.Author) error {
	author.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO authors (name, biography, created_at) VALUES (?, ?, ?)`,
		author.Name,
		author.Biography,
		author.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating author %q: %w", author.Name, err)
	}

	author.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading author id: %w", err)
	}
	return nil
}

// GetAuthor returns apperror.AuthorNotFound for unknown IDs.
func (db *DB) GetAuthor(ctx context.Context, id int64) (*model.Author, error) {
	var a model.Author
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, biography, created_at FROM authors WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.Name, &a.Biography, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.AuthorNotFound(id)
		}
		return nil, fmt.Errorf("sqlite: getting author %d: %w", id, err)
	}
	return &a, nil
}

// ListAuthors returns all authors ordered by name, then ID.
func (db *DB) ListAuthors(ctx context.Context) ([]model.Author, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, biography, created_at FROM authors ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing authors: %w", err)
	}
	defer rows.Close()

	var authors []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Biography, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning author row: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating authors: %w", err)
	}
	return authors, nil
}
