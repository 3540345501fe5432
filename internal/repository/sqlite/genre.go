package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
)

var _ repository.GenreRepository = (*DB)(nil)

// CreateGenre inserts a genre. A name that already exists yields
// apperror.DuplicateGenre straight from the UNIQUE constraint.
func (db *DB) CreateGenre(ctx context.Context, genre *model.Genre) error {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO genres (name) VALUES (?)`, genre.Name,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateGenre(genre.Name)
		}
		return fmt.Errorf("sqlite: creating genre %q: %w", genre.Name, err)
	}

	genre.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading genre id: %w", err)
	}
	return nil
}

// GetGenreByName returns apperror.ErrNotFound if no genre has that name.
func (db *DB) GetGenreByName(ctx context.Context, name string) (*model.Genre, error) {
	var g model.Genre
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM genres WHERE name = ?`, name,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("genre", name)
		}
		return nil, fmt.Errorf("sqlite: getting genre %q: %w", name, err)
	}
	return &g, nil
}

// GetGenres returns the genres whose IDs are in ids, ordered by name.
// Unknown IDs are simply absent from the result; callers compare lengths.
func (db *DB) GetGenres(ctx context.Context, ids []int64) ([]model.Genre, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM genres WHERE id IN (`+placeholders+`) ORDER BY name, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting genres: %w", err)
	}
	defer rows.Close()

	return scanGenres(rows)
}

// ListGenres returns every genre ordered by name.
func (db *DB) ListGenres(ctx context.Context) ([]model.Genre, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing genres: %w", err)
	}
	defer rows.Close()

	return scanGenres(rows)
}

func scanGenres(rows *sql.Rows) ([]model.Genre, error) {
	var genres []model.Genre
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning genre row: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating genres: %w", err)
	}
	return genres, nil
}
