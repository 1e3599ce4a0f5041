package query

import (
	stderrors "errors"
	"fmt"

	errors "github.com/goliatone/go-errors"
)

// errValidation builds a validation-category error. All constructor failures
// in this package go through here so callers can classify them uniformly.
func errValidation(format string, args ...any) error {
	return errors.New(fmt.Sprintf(format, args...), errors.CategoryValidation)
}

// IsValidation reports whether err (or anything it wraps) is a
// validation-category error produced by this module.
func IsValidation(err error) bool {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.Category == errors.CategoryValidation
	}
	return false
}
