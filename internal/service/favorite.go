package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/repository"
)

// FavoriteService maintains the viewer's favorite books.
// Favorite and Unfavorite are idempotent.
type FavoriteService struct {
	books     repository.BookRepository
	favorites repository.FavoriteRepository
	logger    *slog.Logger
}

func NewFavoriteService(books repository.BookRepository, favorites repository.FavoriteRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{books: books, favorites: favorites, logger: logger}
}

// Favorite adds the book to the viewer's favorites. Unknown books are
// apperror.BookNotFound.
func (s *FavoriteService) Favorite(ctx context.Context, bookID int64) error {
	user, err := viewer(ctx)
	if err != nil {
		return err
	}

	if _, err := s.books.GetBook(ctx, bookID); err != nil {
		return passThroughAppError(fmt.Sprintf("service/favorite: loading book %d", bookID), err)
	}

	if err := s.favorites.AddFavorite(ctx, user.ID, bookID); err != nil {
		return passThroughAppError("service/favorite", err)
	}

	s.logger.Info("book favorited", slog.Int64("userID", user.ID), slog.Int64("bookID", bookID))
	return nil
}

// Unfavorite removes the book from the viewer's favorites. Removing a book
// that was never favorited, or does not exist, is a no-op.
func (s *FavoriteService) Unfavorite(ctx context.Context, bookID int64) error {
	user, err := viewer(ctx)
	if err != nil {
		return err
	}

	if err := s.favorites.RemoveFavorite(ctx, user.ID, bookID); err != nil {
		return fmt.Errorf("service/favorite: %w", err)
	}

	s.logger.Info("book unfavorited", slog.Int64("userID", user.ID), slog.Int64("bookID", bookID))
	return nil
}

// IsFavorited is always false for anonymous viewers.
func (s *FavoriteService) IsFavorited(ctx context.Context, bookID int64) (bool, error) {
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		return false, nil
	}

	favorited, err := s.favorites.IsFavorite(ctx, user.ID, bookID)
	if err != nil {
		return false, fmt.Errorf("service/favorite: %w", err)
	}
	return favorited, nil
}

// ListFavorites returns a user's favorite books. Favorites are public, so
// any viewer may list anyone's.
func (s *FavoriteService) ListFavorites(ctx context.Context, userID int64) ([]model.BookView, error) {
	books, err := s.favorites.ListFavoriteBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/favorite: %w", err)
	}
	return books, nil
}
