// Package apperror defines the application's error vocabulary.
//
// There are two tiers of sentinel errors:
//   - category sentinels (ErrNotFound, ErrConflict, ...) that handlers map to
//     HTTP status codes
//   - domain sentinels (ErrUsernameTaken, ErrBookNotFound, ...) that wrap a
//     category, so errors.Is works against either tier
//
// AppError carries the human-readable message shown to the user.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

var (
	ErrUsernameTaken    = fmt.Errorf("username taken: %w", ErrConflict)
	ErrDuplicateGenre   = fmt.Errorf("duplicate genre: %w", ErrConflict)
	ErrUserNotFound     = fmt.Errorf("user: %w", ErrNotFound)
	ErrAuthorNotFound   = fmt.Errorf("author: %w", ErrNotFound)
	ErrBookNotFound     = fmt.Errorf("book: %w", ErrNotFound)
	ErrPasswordMismatch = fmt.Errorf("password mismatch: %w", ErrUnauthenticated)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned by services when an operation needs a
// logged-in viewer and the request context carries none.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "Please log in to access this page.",
	}
}

// UsernameTaken is returned by signup, both from the pre-check and when the
// UNIQUE constraint fires at insert time.
func UsernameTaken() *AppError {
	return &AppError{
		Err:     ErrUsernameTaken,
		Message: "That username is taken. Please choose a different one.",
		Field:   "username",
	}
}

func UserNotFound() *AppError {
	return &AppError{
		Err:     ErrUserNotFound,
		Message: "No user with that username. Please try again.",
		Field:   "username",
	}
}

func PasswordMismatch() *AppError {
	return &AppError{
		Err:     ErrPasswordMismatch,
		Message: "Password doesn't match. Please try again.",
		Field:   "password",
	}
}

func DuplicateGenre(name string) *AppError {
	return &AppError{
		Err:     ErrDuplicateGenre,
		Message: fmt.Sprintf("A genre named %q already exists.", name),
		Field:   "name",
	}
}

func AuthorNotFound(id int64) *AppError {
	return &AppError{
		Err:     ErrAuthorNotFound,
		Message: fmt.Sprintf("Author %d does not exist.", id),
		Field:   "author",
	}
}

func BookNotFound(id int64) *AppError {
	return &AppError{
		Err:     ErrBookNotFound,
		Message: fmt.Sprintf("book not found with id %d", id),
	}
}
