package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/model"
	"github.com/sakif/library-catalog/internal/service"
)

// CatalogHandler serves the home page, book pages and the create forms.
type CatalogHandler struct {
	catalog CatalogService
	render  *Renderer
	logger  *slog.Logger
}

func NewCatalogHandler(catalog CatalogService, render *Renderer, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, render: render, logger: logger}
}

type homeData struct {
	Books []model.BookView
}

type bookData struct {
	Book *model.BookView
	Form bookForm
}

type bookFormData struct {
	Form bookForm
}

type authorData struct {
	Name      string
	Biography string
}

type genreData struct {
	Name   string
	Genres []model.Genre
}

// HandleHome lists every book.
//
// HTTP: GET /
func (h *CatalogHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	books, err := h.catalog.ListBooks(r.Context())
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "home.html", Page{Data: homeData{Books: books}})
}

// HandleBook shows one book. Logged-in viewers also get the favorite button
// and the edit form.
//
// HTTP: GET /book/{id}
func (h *CatalogHandler) HandleBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}
	h.renderBook(w, r, id, http.StatusOK, nil, "")
}

// HandleUpdateBook replaces every field of the book with the submitted form.
//
// HTTP: POST /book/{id}
// Form: title, publish_date, author, audience, genres (repeated)
func (h *CatalogHandler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.render.NotFound(w, r)
		return
	}

	in, err := decodeBookForm(r)
	if err == nil {
		_, err = h.catalog.UpdateBook(r.Context(), id, in)
	}
	if err != nil {
		if !isFormError(err) {
			h.render.Error(w, r, err)
			return
		}
		status, message := h.render.formFailure(r, err)
		h.renderBook(w, r, id, status, &in, message)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/book/%d", id), http.StatusSeeOther)
}

// renderBook renders the book page. in, when non-nil, replaces the stored
// values in the edit form so a rejected submission is shown back as typed.
func (h *CatalogHandler) renderBook(w http.ResponseWriter, r *http.Request, id int64, status int, in *service.BookInput, message string) {
	book, err := h.catalog.GetBook(r.Context(), id)
	if err != nil {
		h.render.Error(w, r, err)
		return
	}

	data := bookData{Book: book}
	if _, ok := auth.UserFromContext(r.Context()); ok {
		input := bookInputFromView(book)
		if in != nil {
			input = *in
		}
		data.Form, err = h.bookForm(r.Context(), input)
		if err != nil {
			h.render.Error(w, r, err)
			return
		}
	}

	h.render.Render(w, r, status, "book.html", Page{Title: book.Title, Error: message, Data: data})
}

// HandleCreateBookForm renders an empty book form.
//
// HTTP: GET /create_book
func (h *CatalogHandler) HandleCreateBookForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.bookForm(r.Context(), service.BookInput{})
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, "create_book.html", Page{Title: "Create Book", Data: bookFormData{Form: form}})
}

// HandleCreateBook creates a book and redirects to its page.
//
// HTTP: POST /create_book
// Form: title, publish_date, author, audience, genres (repeated)
func (h *CatalogHandler) HandleCreateBook(w http.ResponseWriter, r *http.Request) {
	in, err := decodeBookForm(r)
	var book *model.Book
	if err == nil {
		book, err = h.catalog.CreateBook(r.Context(), in)
	}
	if err != nil {
		form, ferr := h.bookForm(r.Context(), in)
		if ferr != nil {
			h.render.Error(w, r, ferr)
			return
		}
		h.render.FormError(w, r, err, "create_book.html", Page{Title: "Create Book", Data: bookFormData{Form: form}})
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/book/%d", book.ID), http.StatusSeeOther)
}

// HandleCreateAuthorForm renders an empty author form.
//
// HTTP: GET /create_author
func (h *CatalogHandler) HandleCreateAuthorForm(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, "create_author.html", Page{Title: "Create Author", Data: authorData{}})
}

// HandleCreateAuthor creates an author and redirects home.
//
// HTTP: POST /create_author
// Form: name, biography
func (h *CatalogHandler) HandleCreateAuthor(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "The form could not be read."))
		return
	}
	in := service.AuthorInput{
		Name:      r.PostForm.Get("name"),
		Biography: r.PostForm.Get("biography"),
	}

	if _, err := h.catalog.CreateAuthor(r.Context(), in); err != nil {
		h.render.FormError(w, r, err, "create_author.html", Page{
			Title: "Create Author",
			Data:  authorData{Name: in.Name, Biography: in.Biography},
		})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleCreateGenreForm renders the genre form with the existing genres
// listed underneath.
//
// HTTP: GET /create_genre
func (h *CatalogHandler) HandleCreateGenreForm(w http.ResponseWriter, r *http.Request) {
	h.renderGenreForm(w, r, http.StatusOK, genreData{}, "")
}

// HandleCreateGenre creates a genre and redirects home.
//
// HTTP: POST /create_genre
// Form: name
func (h *CatalogHandler) HandleCreateGenre(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, apperror.ValidationFailed("form", "The form could not be read."))
		return
	}
	name := r.PostForm.Get("name")

	if _, err := h.catalog.CreateGenre(r.Context(), name); err != nil {
		if !isFormError(err) {
			h.render.Error(w, r, err)
			return
		}
		status, message := h.render.formFailure(r, err)
		h.renderGenreForm(w, r, status, genreData{Name: name}, message)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *CatalogHandler) renderGenreForm(w http.ResponseWriter, r *http.Request, status int, data genreData, message string) {
	genres, err := h.catalog.ListGenres(r.Context())
	if err != nil {
		h.render.Error(w, r, err)
		return
	}
	data.Genres = genres
	h.render.Render(w, r, status, "create_genre.html", Page{Title: "Create Genre", Error: message, Data: data})
}

// bookForm loads the select options for a book form.
func (h *CatalogHandler) bookForm(ctx context.Context, in service.BookInput) (bookForm, error) {
	authors, err := h.catalog.ListAuthors(ctx)
	if err != nil {
		return bookForm{}, err
	}
	genres, err := h.catalog.ListGenres(ctx)
	if err != nil {
		return bookForm{}, err
	}
	return bookForm{Input: in, Authors: authors, Genres: genres, Audiences: model.Audiences}, nil
}
