package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
	"github.com/sakif/library-catalog/internal/validation"
)

// AuthorInput is the create-author form.
type AuthorInput struct {
	Name      string `form:"name" validate:"required,max=200"`
	Biography string `form:"biography" validate:"max=5000"`
}

// GenreInput is the create-genre form.
type GenreInput struct {
	Name string `form:"name" validate:"required,max=100"`
}

// BookInput is the create/update book form. PublishDate and Audience are
// optional; an empty value means "not set". GenreIDs is the complete genre
// set for the book.
type BookInput struct {
	Title       string  `form:"title" validate:"required,max=200"`
	PublishDate string  `form:"publish_date" validate:"omitempty,datetime=2006-01-02"`
	AuthorID    int64   `form:"author" validate:"required"`
	Audience    string  `form:"audience" validate:"omitempty,oneof=CHILDREN YOUNG_ADULT ADULT"`
	GenreIDs    []int64 `form:"genres" validate:"max=50"`
}

// CatalogService manages books, authors and genres.
type CatalogService struct {
	authors   repository.AuthorRepository
	genres    repository.GenreRepository
	books     repository.BookRepository
	favorites repository.FavoriteRepository
	validate  *validation.Validator
	logger    *slog.Logger
}

func NewCatalogService(
	authors repository.AuthorRepository,
	genres repository.GenreRepository,
	books repository.BookRepository,
	favorites repository.FavoriteRepository,
	validate *validation.Validator,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		authors:   authors,
		genres:    genres,
		books:     books,
		favorites: favorites,
		validate:  validate,
		logger:    logger,
	}
}

// CreateAuthor requires a logged-in viewer.
func (s *CatalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*model.Author, error) {
	if _, err := viewer(ctx); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Biography = strings.TrimSpace(in.Biography)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	author := &model.Author{Name: in.Name, Biography: in.Biography}
	if err := s.authors.CreateAuthor(ctx, author); err != nil {
		return nil, fmt.Errorf("service/catalog: %w", err)
	}

	s.logger.Info("author created", slog.Int64("authorID", author.ID), slog.String("name", author.Name))
	return author, nil
}

// CreateGenre requires a logged-in viewer. Genre names are unique: an
// existing name yields apperror.DuplicateGenre, whether caught by the
// pre-check or by the UNIQUE constraint on a concurrent insert.
func (s *CatalogService) CreateGenre(ctx context.Context, name string) (*model.Genre, error) {
	if _, err := viewer(ctx); err != nil {
		return nil, err
	}

	in := GenreInput{Name: strings.TrimSpace(name)}
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	if _, err := s.genres.GetGenreByName(ctx, in.Name); err == nil {
		return nil, apperror.DuplicateGenre(in.Name)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/catalog: checking genre %q: %w", in.Name, err)
	}

	genre := &model.Genre{Name: in.Name}
	if err := s.genres.CreateGenre(ctx, genre); err != nil {
		if errors.Is(err, apperror.ErrDuplicateGenre) {
			return nil, err
		}
		return nil, fmt.Errorf("service/catalog: %w", err)
	}

	s.logger.Info("genre created", slog.Int64("genreID", genre.ID), slog.String("name", genre.Name))
	return genre, nil
}

// CreateBook requires a logged-in viewer.
//
// Errors: validation failures for the form fields (including an unknown
// genre ID), apperror.AuthorNotFound for an unknown author.
func (s *CatalogService) CreateBook(ctx context.Context, in BookInput) (*model.Book, error) {
	if _, err := viewer(ctx); err != nil {
		return nil, err
	}

	book, err := s.buildBook(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.books.CreateBook(ctx, book); err != nil {
		return nil, passThroughAppError("service/catalog: creating book", err)
	}

	s.logger.Info("book created",
		slog.Int64("bookID", book.ID),
		slog.String("title", book.Title),
		slog.Int64("authorID", book.AuthorID),
	)
	return book, nil
}

// UpdateBook overwrites every field of an existing book, genre set included.
// An unknown id is apperror.BookNotFound before any form validation.
func (s *CatalogService) UpdateBook(ctx context.Context, id int64, in BookInput) (*model.Book, error) {
	if _, err := viewer(ctx); err != nil {
		return nil, err
	}

	existing, err := s.books.GetBook(ctx, id)
	if err != nil {
		return nil, passThroughAppError(fmt.Sprintf("service/catalog: loading book %d", id), err)
	}

	book, err := s.buildBook(ctx, in)
	if err != nil {
		return nil, err
	}
	book.ID = existing.ID
	book.CreatedAt = existing.CreatedAt

	if err := s.books.UpdateBook(ctx, book); err != nil {
		return nil, passThroughAppError(fmt.Sprintf("service/catalog: updating book %d", id), err)
	}

	s.logger.Info("book updated", slog.Int64("bookID", book.ID), slog.String("title", book.Title))
	return book, nil
}

// GetBook is available to anonymous viewers. CanFavorite and IsFavorited
// describe what the current viewer, if any, can do with the book.
func (s *CatalogService) GetBook(ctx context.Context, id int64) (*model.BookView, error) {
	view, err := s.books.GetBook(ctx, id)
	if err != nil {
		return nil, passThroughAppError(fmt.Sprintf("service/catalog: loading book %d", id), err)
	}

	if user, err := viewer(ctx); err == nil {
		view.CanFavorite = true
		view.IsFavorited, err = s.favorites.IsFavorite(ctx, user.ID, id)
		if err != nil {
			return nil, fmt.Errorf("service/catalog: %w", err)
		}
	}
	return view, nil
}

// ListBooks returns every book in creation order.
func (s *CatalogService) ListBooks(ctx context.Context) ([]model.BookView, error) {
	books, err := s.books.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: %w", err)
	}
	return books, nil
}

func (s *CatalogService) ListAuthors(ctx context.Context) ([]model.Author, error) {
	authors, err := s.authors.ListAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: %w", err)
	}
	return authors, nil
}

func (s *CatalogService) ListGenres(ctx context.Context) ([]model.Genre, error) {
	genres, err := s.genres.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: %w", err)
	}
	return genres, nil
}

// buildBook validates the form and resolves its references into a
// write-ready model.Book.
func (s *CatalogService) buildBook(ctx context.Context, in BookInput) (*model.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.PublishDate = strings.TrimSpace(in.PublishDate)
	if err := s.validate.Validate(in); err != nil {
		return nil, err
	}

	book := &model.Book{Title: in.Title, AuthorID: in.AuthorID}

	if in.PublishDate != "" {
		d, err := time.Parse(model.DateLayout, in.PublishDate)
		if err != nil {
			return nil, apperror.ValidationFailed("publish_date", "Publish date must be a date in YYYY-MM-DD format.")
		}
		book.PublishDate = &d
	}

	audience, err := model.ParseAudience(in.Audience)
	if err != nil {
		return nil, apperror.ValidationFailed("audience", "Audience must be one of: CHILDREN, YOUNG_ADULT, ADULT.")
	}
	book.Audience = audience

	if _, err := s.authors.GetAuthor(ctx, in.AuthorID); err != nil {
		return nil, passThroughAppError("service/catalog: checking author", err)
	}

	book.GenreIDs, err = s.resolveGenres(ctx, in.GenreIDs)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// resolveGenres de-duplicates ids and checks that each names a genre. The
// first unknown ID in ascending order is reported, so the same input always
// produces the same error.
func (s *CatalogService) resolveGenres(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	found, err := s.genres.GetGenres(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading genres: %w", err)
	}

	if len(found) != len(unique) {
		known := make(map[int64]bool, len(found))
		for _, g := range found {
			known[g.ID] = true
		}
		for _, id := range unique {
			if !known[id] {
				return nil, apperror.ValidationFailed("genres", fmt.Sprintf("Genre %d does not exist.", id))
			}
		}
	}
	return unique, nil
}

// passThroughAppError returns err unchanged when it already carries a
// user-facing AppError, and wraps it with context otherwise.
func passThroughAppError(action string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", action, err)
}
