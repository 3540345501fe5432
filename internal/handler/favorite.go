package handler

import (
	"fmt"
	"log/slog"
	"net/http"
)

// FavoriteHandler adds and removes favorites. Both actions redirect back to
// the book page, so the button flips between Favorite and Unfavorite.
//
// The book comes from the path. The book_id form field the page also posts
// is not needed.
type FavoriteHandler struct {
	favorites FavoriteService
	render    *Renderer
	logger    *slog.Logger
}

func NewFavoriteHandler(favorites FavoriteService, render *Renderer, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, render: render, logger: logger}
}

// HandleFavorite is POST /favorite/{id}.
func (h *FavoriteHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}

	if err := h.favorites.Favorite(r.Context(), id); err != nil {
		h.render.Error(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/book/%d", id), http.StatusSeeOther)
}

// HandleUnfavorite is POST /unfavorite/{id}.
func (h *FavoriteHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}

	if err := h.favorites.Unfavorite(r.Context(), id); err != nil {
		h.render.Error(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/book/%d", id), http.StatusSeeOther)
}
