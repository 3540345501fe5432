package handler

// RENDERING:
// Every page is base.html + partials.html + one page file, parsed once at
// startup and executed through the "base" template. Pages render into a
// buffer first so a template failure can still become a clean 500 instead
// of half a page with a 200 status.
//
// ERROR MAPPING:
// Services return apperror values; this file is the only place that turns
// them into HTTP status codes.
//
//	ErrValidation      → 400, form re-rendered with the message
//	ErrUnauthenticated → redirect to /login?next=...
//	ErrForbidden       → 403
//	ErrNotFound        → 404
//	ErrConflict        → 409, form re-rendered with the message
//	anything else      → 500, generic message, details only in the log

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/library-catalog/internal/apperror"
	"github.com/sakif/library-catalog/internal/auth"
	"github.com/sakif/library-catalog/internal/model"
)

const genericErrorMessage = "Something went wrong. Please try again."

var pageFiles = []string{
	"home.html",
	"login.html",
	"signup.html",
	"book.html",
	"create_book.html",
	"create_author.html",
	"create_genre.html",
	"profile.html",
	"error.html",
}

// Page is the data every template receives. Viewer is filled in by the
// Renderer from the request context; handlers set the rest.
type Page struct {
	Title   string
	Viewer  *model.User
	Message string // informational, e.g. why the user was sent to log in
	Error   string // what went wrong with the last submission
	Data    any    // page-specific
}

type errorData struct {
	Heading string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses every page in fsys (expected to contain templates/*.html).
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		tmpl, err := template.ParseFS(fsys,
			"templates/base.html",
			"templates/partials.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page with the given status.
func (rn *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	tmpl, ok := rn.pages[name]
	if !ok {
		rn.logger.Error("unknown page template", slog.String("page", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user, ok := auth.UserFromContext(r.Context()); ok {
		p.Viewer = user
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", p); err != nil {
		rn.logger.Error("failed to render template",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rn.logger.Debug("writing response", slog.String("error", err.Error()))
	}
}

// NotFound renders the 404 page.
func (rn *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rn.Render(w, r, http.StatusNotFound, "error.html", Page{
		Title: "Not Found",
		Error: "We couldn't find what you were looking for.",
		Data:  errorData{Heading: "Page Not Found"},
	})
}

// Error renders err as a full error page. Use it where there is no form to
// re-render; FormError handles the form case.
func (rn *Renderer) Error(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrUnauthenticated) {
		http.Redirect(w, r, auth.LoginURL(r), http.StatusSeeOther)
		return
	}

	status, message := rn.describe(r, err)
	if status == http.StatusNotFound {
		rn.NotFound(w, r)
		return
	}
	rn.Render(w, r, status, "error.html", Page{
		Title: http.StatusText(status),
		Error: message,
		Data:  errorData{Heading: http.StatusText(status)},
	})
}

// FormError re-renders a form page with err's message. Not-found and
// unexpected errors fall through to a full error page.
func (rn *Renderer) FormError(w http.ResponseWriter, r *http.Request, err error, name string, p Page) {
	if !isFormError(err) {
		rn.Error(w, r, err)
		return
	}
	status, message := rn.formFailure(r, err)
	p.Error = message
	rn.Render(w, r, status, name, p)
}

// isFormError reports whether err belongs next to the form that caused it
// rather than on an error page. An unknown author is a bad select value, not
// a missing page.
func isFormError(err error) bool {
	return errors.Is(err, apperror.ErrValidation) ||
		errors.Is(err, apperror.ErrConflict) ||
		errors.Is(err, apperror.ErrAuthorNotFound)
}

// formFailure is describe for errors that isFormError accepts.
func (rn *Renderer) formFailure(r *http.Request, err error) (int, string) {
	status, message := rn.describe(r, err)
	if status == http.StatusNotFound {
		status = http.StatusBadRequest
	}
	return status, message
}

// describe maps err to a status code and the message shown to the user.
func (rn *Renderer) describe(r *http.Request, err error) (int, string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			return http.StatusBadRequest, appErr.Message
		case errors.Is(err, apperror.ErrNotFound):
			return http.StatusNotFound, appErr.Message
		case errors.Is(err, apperror.ErrForbidden):
			return http.StatusForbidden, appErr.Message
		case errors.Is(err, apperror.ErrConflict):
			return http.StatusConflict, appErr.Message
		case errors.Is(err, apperror.ErrUnauthenticated):
			return http.StatusUnauthorized, appErr.Message
		}
	}

	// The raw error may hold SQL or file paths; it goes to the log only.
	rn.logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	return http.StatusInternalServerError, genericErrorMessage
}
