package handler

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/service"
)

// bookForm is what the book_fields partial renders: the values to show plus
// the options for the selects.
type bookForm struct {
	Input     service.BookInput
	Authors   []model.Author
	Genres    []model.Genre
	Audiences []model.Audience
}

// HasGenre reports whether the genre should be pre-selected.
func (f bookForm) HasGenre(id int64) bool {
	return slices.Contains(f.Input.GenreIDs, id)
}

// bookInputFromView fills the edit form with a stored book.
func bookInputFromView(b *model.BookView) service.BookInput {
	return service.BookInput{
		Title:       b.Title,
		PublishDate: b.PublishDateString(),
		AuthorID:    b.AuthorID,
		Audience:    string(b.Audience),
		GenreIDs:    slices.Clone(b.GenreIDs),
	}
}

// decodeBookForm reads the create/update book form. The returned input is
// usable for re-rendering even when err is non-nil.
//
// author and genres arrive as decimal ids; an empty author is left at zero
// for the validator to report as missing.
func decodeBookForm(r *http.Request) (service.BookInput, error) {
	if err := r.ParseForm(); err != nil {
		return service.BookInput{}, apperror.ValidationFailed("form", "The form could not be read.")
	}

	in := service.BookInput{
		Title:       r.PostForm.Get("title"),
		PublishDate: r.PostForm.Get("publish_date"),
		Audience:    r.PostForm.Get("audience"),
	}

	var err error
	if raw := strings.TrimSpace(r.PostForm.Get("author")); raw != "" {
		in.AuthorID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || in.AuthorID <= 0 {
			in.AuthorID = 0
			return in, apperror.ValidationFailed("author", "Please choose an author from the list.")
		}
	}

	for _, raw := range r.PostForm["genres"] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || id <= 0 {
			return in, apperror.ValidationFailed("genres", fmt.Sprintf("%q is not a valid genre.", raw))
		}
		in.GenreIDs = append(in.GenreIDs, id)
	}

	return in, nil
}
