// Package validation checks decoded form input with go-playground/validator
// and converts failures into apperror validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/library-catalog/internal/apperror"
)

// Validator wraps go-playground/validator with apperror conversion.
// It is safe for concurrent use; build one and share it.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their `form` tag, so messages
// match the input names users see.
//
// Besides the built-in tags it understands maxbytes=N, a length limit in
// bytes rather than runes.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(fmt.Sprintf("validation: registering maxbytes: %v", err))
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Validate checks s and returns nil or an *apperror.AppError describing the
// first failing field in declaration order.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("validation: %w", err)
	}

	first := validationErrs[0]
	return apperror.ValidationFailed(first.Field(), label(first.Field())+" "+friendlyMessage(first)+".")
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// label turns a form name like "publish_date" into "Publish date".
func label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not have more than %s entries", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "maxbytes":
		return fmt.Sprintf("must be %s bytes or fewer", e.Param())
	case "excludesall":
		return "must not contain any of " + strings.Join(strings.Split(e.Param(), ""), " ")
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	default:
		return "is invalid"
	}
}
