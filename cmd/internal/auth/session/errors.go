package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("invalid input")

	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("already in use")

	// ErrNotFound is returned when no account matches the given identifier.
	ErrNotFound = errors.New("account not found")

	// ErrUnauthorized is returned for bad credentials and for refresh
	// tokens that are expired, forged, replayed, or already rotated.
	// The causes are deliberately indistinguishable to callers.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// ValidationError carries the field names that failed validation so the
// API layer can render them in the error payload.
type ValidationError struct {
	Fields []string
}

func (e ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports which logical field collided ("username" or "email").
type ConflictError struct {
	Field string
}

func (e ConflictError) Error() string {
	if e.Field == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("%s %v", e.Field, ErrConflict)
}

func (e ConflictError) Unwrap() error { return ErrConflict }
