package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
)

var _ repository.BookRepository = (*DB)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx, so read helpers can run
// inside or outside a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// bookViewColumns selects a book joined with its author. Order must match
// scanBookViews.
const bookViewColumns = `
	b.id, b.title, b.publish_date, b.audience, b.author_id, b.created_at, b.updated_at,
	a.id, a.name, a.biography, a.created_at`

// CreateBook inserts the book and its genre edges in one transaction.
// A failure anywhere rolls back both.
func (db *DB) CreateBook(ctx context.Context, book *model.Book) error {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO books (title, publish_date, audience, author_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			book.Title,
			nullDate(book.PublishDate),
			nullAudience(book.Audience),
			book.AuthorID,
			book.CreatedAt,
			book.UpdatedAt,
		)
		if err != nil {
			return err
		}

		book.ID, err = result.LastInsertId()
		if err != nil {
			return err
		}

		return insertBookGenres(ctx, tx, book.ID, book.GenreIDs)
	})
	if err != nil {
		book.ID = 0
		return translateBookWriteErr("creating book", err)
	}
	return nil
}

// UpdateBook replaces every mutable field of the book, including the genre
// set: edges not in book.GenreIDs are removed. Returns apperror.BookNotFound
// when the ID does not exist.
func (db *DB) UpdateBook(ctx context.Context, book *model.Book) error {
	book.UpdatedAt = time.Now().UTC()

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE books
			 SET title = ?, publish_date = ?, audience = ?, author_id = ?, updated_at = ?
			 WHERE id = ?`,
			book.Title,
			nullDate(book.PublishDate),
			nullAudience(book.Audience),
			book.AuthorID,
			book.UpdatedAt,
			book.ID,
		)
		if err != nil {
			return err
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return apperror.BookNotFound(book.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM book_genres WHERE book_id = ?`, book.ID); err != nil {
			return err
		}
		return insertBookGenres(ctx, tx, book.ID, book.GenreIDs)
	})
	if err != nil {
		return translateBookWriteErr(fmt.Sprintf("updating book %d", book.ID), err)
	}
	return nil
}

// GetBook returns the book with author and genres resolved, or
// apperror.BookNotFound.
func (db *DB) GetBook(ctx context.Context, id int64) (*model.BookView, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookViewColumns+`
		 FROM books b JOIN authors a ON a.id = b.author_id
		 WHERE b.id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting book %d: %w", id, err)
	}
	views, err := scanBookViews(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting book %d: %w", id, err)
	}
	if len(views) == 0 {
		return nil, apperror.BookNotFound(id)
	}

	if err := attachGenres(ctx, db.conn, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

// ListBooks returns every book in creation order.
func (db *DB) ListBooks(ctx context.Context) ([]model.BookView, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+bookViewColumns+`
		 FROM books b JOIN authors a ON a.id = b.author_id
		 ORDER BY b.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}
	views, err := scanBookViews(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing books: %w", err)
	}

	if err := attachGenres(ctx, db.conn, views); err != nil {
		return nil, err
	}
	return views, nil
}

// insertBookGenres writes one edge per distinct genre ID.
// INSERT OR IGNORE collapses duplicates in ids instead of failing on the
// composite primary key.
func insertBookGenres(ctx context.Context, tx *sql.Tx, bookID int64, genreIDs []int64) error {
	for _, genreID := range genreIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO book_genres (book_id, genre_id) VALUES (?, ?)`,
			bookID, genreID,
		); err != nil {
			return err
		}
	}
	return nil
}

// translateBookWriteErr keeps domain errors intact and turns a foreign-key
// failure (author or genre vanished after the service checked it) into a
// validation error.
func translateBookWriteErr(action string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if isForeignKeyViolation(err) {
		return apperror.ValidationFailed("author", "The selected author or genre does not exist.")
	}
	return fmt.Errorf("sqlite: %s: %w", action, err)
}

// scanBookViews reads book+author rows and closes rows.
func scanBookViews(rows *sql.Rows) ([]model.BookView, error) {
	defer rows.Close()

	var views []model.BookView
	for rows.Next() {
		var (
			v           model.BookView
			publishDate sql.NullString
			audience    sql.NullString
		)
		if err := rows.Scan(
			&v.ID, &v.Title, &publishDate, &audience, &v.AuthorID, &v.CreatedAt, &v.UpdatedAt,
			&v.Author.ID, &v.Author.Name, &v.Author.Biography, &v.Author.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning book row: %w", err)
		}

		if publishDate.Valid && publishDate.String != "" {
			d, err := time.Parse(model.DateLayout, publishDate.String)
			if err != nil {
				return nil, fmt.Errorf("parsing publish_date %q of book %d: %w", publishDate.String, v.ID, err)
			}
			v.PublishDate = &d
		}
		if audience.Valid {
			v.Audience = model.Audience(audience.String)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating book rows: %w", err)
	}
	return views, nil
}

// attachGenres loads the genre sets for all views in a single query and
// fills both Genres and GenreIDs.
func attachGenres(ctx context.Context, q querier, views []model.BookView) error {
	if len(views) == 0 {
		return nil
	}

	index := make(map[int64]int, len(views))
	args := make([]any, len(views))
	for i, v := range views {
		index[v.ID] = i
		args[i] = v.ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(views)), ",")

	rows, err := q.QueryContext(ctx,
		`SELECT bg.book_id, g.id, g.name
		 FROM book_genres bg JOIN genres g ON g.id = bg.genre_id
		 WHERE bg.book_id IN (`+placeholders+`)
		 ORDER BY g.name, g.id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading book genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bookID int64
			g      model.Genre
		)
		if err := rows.Scan(&bookID, &g.ID, &g.Name); err != nil {
			return fmt.Errorf("sqlite: scanning book genre row: %w", err)
		}
		v := &views[index[bookID]]
		v.Genres = append(v.Genres, g)
		v.GenreIDs = append(v.GenreIDs, g.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating book genres: %w", err)
	}
	return nil
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(model.DateLayout), Valid: true}
}

func nullAudience(a model.Audience) sql.NullString {
	if a == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(a), Valid: true}
}
