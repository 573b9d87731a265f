// Package apperr defines the error kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify an error returned by a service.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("auth error")
	ErrNotFound   = errors.New("not found")
)

// Error is a user-facing message tagged with one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Validation returns an ErrValidation with the given message.
func Validation(msg string) error {
	return &Error{Kind: ErrValidation, Msg: msg}
}

// Validationf formats a ErrValidation message.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Sprintf(format, args...))
}

// Auth returns an ErrAuth with the given message.
func Auth(msg string) error {
	return &Error{Kind: ErrAuth, Msg: msg}
}

// NotFound returns an ErrNotFound with the given message.
func NotFound(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// NotFoundf formats an ErrNotFound message.
func NotFoundf(format string, args ...any) error {
	return NotFound(fmt.Sprintf(format, args...))
}

// Message returns the user-facing message of err, or fallback when err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return fallback
}
