package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/model"
)

// ProfileHandler serves user profile pages.
type ProfileHandler struct {
	auth      AuthService
	favorites FavoriteService
	render    *Renderer
	logger    *slog.Logger
}

func NewProfileHandler(authService AuthService, favorites FavoriteService, render *Renderer, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{auth: authService, favorites: favorites, render: render, logger: logger}
}

type profileData struct {
	User      *model.User
	Favorites []model.BookView
	IsOwner   bool
}

// HandleProfile shows a user's favorite books. The owner also gets the create
// links and Log Out.
//
// HTTP: GET /profile/{username}
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	// chi matches against RawPath when the request carries one (for example
	// the lowercase escapes html/template writes into links), so the
	// parameter may still be escaped. Signup rejects '%', which makes
	// unescaping safe either way.
	username, err := url.PathUnescape(chi.URLParam(r, "username"))
	if err != nil {
		h.render.NotFound(w, r)
		return
	}

	user, err := h.auth.GetUserByUsername(r.Context(), username)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	favorites, err := h.favorites.ListFavorites(r.Context(), user.ID)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	data := profileData{User: user, Favorites: favorites}
	if viewer, ok := auth.UserFromContext(r.Context()); ok && viewer.ID == user.ID {
		data.IsOwner = true
	}

	h.render.Render(w, r, http.StatusOK, "profile.html", Page{Title: user.Username, Data: data})
}
