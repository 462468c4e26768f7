// Package apperr defines the error kinds shared by services and handlers.
// A kind is a sentinel error so callers classify with errors.Is instead of
// matching message strings.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns wraps exactly one of these.
var (
	// Forbidden: the caller is not entitled to act now (not invited,
	// exam ended, deadline passed).
	Forbidden = errors.New("forbidden")
	// NotFound: a referenced question/exam/test case does not exist.
	NotFound = errors.New("not found")
	// Conflict: a mutation against a published/locked exam.
	Conflict = errors.New("conflict")
	// Validation: malformed input that request binding could not catch.
	Validation = errors.New("validation")
	// Unexpected: data-integrity or infrastructure fault. Logged with
	// context, surfaced to the caller as a generic failure.
	Unexpected = errors.New("unexpected")
)

// Error couples a kind with a human-readable message and an optional cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// E builds an error of the given kind.
func E(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an error of the given kind with an underlying cause.
func Wrap(kind error, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Message returns the user-facing message of an *Error, or a generic
// fallback for anything else so internal detail never leaks.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "an unexpected error occurred"
}
