// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite provides the implementation; service
// tests provide in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/library-catalog/internal/model"
)

// UserRepository stores accounts.
// CreateUser returns apperror.ErrUsernameTaken when the UNIQUE constraint on
// username fires, so callers need not trust a pre-check alone.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// SessionRepository stores server-side sessions.
// DeleteSession is idempotent: deleting an unknown session is not an error.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type AuthorRepository interface {
	CreateAuthor(ctx context.Context, author *model.Author) error
	GetAuthor(ctx context.Context, id int64) (*model.Author, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
}

// GenreRepository stores genres. CreateGenre returns
// apperror.ErrDuplicateGenre on a UNIQUE violation.
type GenreRepository interface {
	CreateGenre(ctx context.Context, genre *model.Genre) error
	GetGenreByName(ctx context.Context, name string) (*model.Genre, error)
	GetGenres(ctx context.Context, ids []int64) ([]model.Genre, error)
	ListGenres(ctx context.Context) ([]model.Genre, error)
}

// BookRepository stores books and their genre edges.
//
// CreateBook and UpdateBook write the book row and its full genre set in one
// transaction. Reads return BookViews with author and genres resolved; the
// viewer-specific fields (CanFavorite, IsFavorited) are left for the service.
type BookRepository interface {
	CreateBook(ctx context.Context, book *model.Book) error
	UpdateBook(ctx context.Context, book *model.Book) error
	GetBook(ctx context.Context, id int64) (*model.BookView, error)
	ListBooks(ctx context.Context) ([]model.BookView, error)
}

// FavoriteRepository stores User↔Book favorite edges.
// Add and Remove are idempotent.
type FavoriteRepository interface {
	AddFavorite(ctx context.Context, userID, bookID int64) error
	RemoveFavorite(ctx context.Context, userID, bookID int64) error
	IsFavorite(ctx context.Context, userID, bookID int64) (bool, error)
	ListFavoriteBooks(ctx context.Context, userID int64) ([]model.BookView, error)
}
