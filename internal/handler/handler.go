// Package handler contains the HTTP handlers of the catalog.
//
// HANDLER RESPONSIBILITIES:
//  1. Decode the request (path parameters and form fields)
//  2. Call the service layer, which owns validation and business rules
//  3. Render a page, or redirect after a successful POST
//
// Handlers never touch the database and never decide who is allowed to do
// what; they pass the request context down and the services read the viewer
// from it.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/service"
)

// AuthService is the part of service.AuthService the handlers use.
type AuthService interface {
	Signup(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	Logout(ctx context.Context, token string) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// CatalogService is the part of service.CatalogService the handlers use.
type CatalogService interface {
	CreateAuthor(ctx context.Context, in service.AuthorInput) (*model.Author, error)
	CreateGenre(ctx context.Context, name string) (*model.Genre, error)
	CreateBook(ctx context.Context, in service.BookInput) (*model.Book, error)
	UpdateBook(ctx context.Context, id int64, in service.BookInput) (*model.Book, error)
	GetBook(ctx context.Context, id int64) (*model.BookView, error)
	ListBooks(ctx context.Context) ([]model.BookView, error)
	ListAuthors(ctx context.Context) ([]model.Author, error)
	ListGenres(ctx context.Context) ([]model.Genre, error)
}

// FavoriteService is the part of service.FavoriteService the handlers use.
type FavoriteService interface {
	Favorite(ctx context.Context, bookID int64) error
	Unfavorite(ctx context.Context, bookID int64) error
	ListFavorites(ctx context.Context, userID int64) ([]model.BookView, error)
}

var (
	_ AuthService     = (*service.AuthService)(nil)
	_ CatalogService  = (*service.CatalogService)(nil)
	_ FavoriteService = (*service.FavoriteService)(nil)
)

// pathID parses the {id} URL parameter. ok is false for anything that is not
// a positive integer, which callers answer with a 404.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
