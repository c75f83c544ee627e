// Package common defines shared constants and the error taxonomy used across
// docgate components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level error kinds. Every failure surfaced to a caller wraps
	// exactly one of these.
	ErrorInvalidInput = errors.New("invalid input")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("conflict")
	ErrorInternal     = errors.New("internal error")

	// ErrorRangeNotSatisfiable is returned when a requested byte range lies
	// outside the object.
	ErrorRangeNotSatisfiable = errors.New("range not satisfiable")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Error is a failure with a caller-safe message. It unwraps to its kind, so
// errors.Is(err, ErrorForbidden) holds for a forbidden Error.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError returns an *Error of the given kind.
func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Internal wraps an unexpected failure so it matches ErrorInternal while
// keeping the cause for logs.
func Internal(err error) error {
	return fmt.Errorf("%w: %w", ErrorInternal, err)
}

// Message returns the caller-safe message carried by err, or the text of its
// kind when err is a bare sentinel. Anything else yields "internal error".
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	for _, kind := range []error{ErrorInvalidInput, ErrorUnauthorized, ErrorForbidden, ErrorNotFound, ErrorConflict, ErrorRangeNotSatisfiable} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrorInternal.Error()
}
