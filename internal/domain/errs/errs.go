// Package errs holds the error taxonomy shared by every layer. Callers match
// with errors.Is against the five kinds; the HTTP layer maps each kind to a
// status code in one place.
package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrDuplicateEmail    = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrDuplicatePhone    = fmt.Errorf("%w: phone number already registered", ErrConflict)
	ErrAlreadyFavorited  = fmt.Errorf("%w: advertisement already in favorites", ErrConflict)
	ErrInvalidCredential = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrPasswordPolicy    = fmt.Errorf("%w: password does not meet policy", ErrValidation)
	ErrPasswordMismatch  = fmt.Errorf("%w: passwords do not match", ErrValidation)
)

// FieldErrors carries one message per offending field. It always matches
// ErrValidation.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Is(target error) bool { return target == ErrValidation }

// Add records msg for field, keeping the first message if one exists.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// OrNil returns nil when no field failed.
func (f FieldErrors) OrNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// Field is shorthand for a single-field validation error.
func Field(field, msg string) FieldErrors {
	return FieldErrors{field: msg}
}

// WithFields joins a specific sentinel with the per-field details so callers
// can match either.
func WithFields(sentinel error, fields FieldErrors) error {
	return fmt.Errorf("%w: %w", sentinel, fields)
}

// Details extracts per-field messages from err, if any.
func Details(err error) map[string]string {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}
