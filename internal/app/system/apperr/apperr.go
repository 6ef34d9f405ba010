// Package apperr defines the error kinds surfaced by Gamerie operations.
//
// Every failure that leaves a service carries a Kind (so callers can branch),
// the operation that produced it, a short user-facing message, and the
// wrapped cause for logging. errors.Is/As see through to the cause.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindProfileMissing Kind = "profile_missing"
	KindRegistration   Kind = "registration"
	KindLogin          Kind = "login"
	KindReset          Kind = "reset"
	KindStoreWrite     Kind = "store_write"
	KindUpload         Kind = "upload"
	KindStorageDelete  Kind = "storage_delete"
	KindConflict       Kind = "conflict"
	KindUnauthorized   Kind = "unauthorized"
	KindFailure        Kind = "failure"
)

// Error is the single error type returned across component boundaries.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error.
func New(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Validation is shorthand for a KindValidation error with no cause.
func Validation(op, message string) *Error {
	return New(KindValidation, op, message, nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindFailure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFailure
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message returns the user-facing message for err. Errors that are not an
// *Error fall back to fallback.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// Rekind re-labels err under a new kind and operation while keeping the
// original user-facing message when it has one. Used when a lower-level
// failure (e.g. a store write) becomes part of a higher-level operation
// (e.g. registration).
func Rekind(err error, kind Kind, op, fallback string) *Error {
	return New(kind, op, Message(err, fallback), err)
}
