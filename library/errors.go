package library

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so a front-end can decide how to present it.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindConflict           Kind = "CONFLICT"
	KindValidation         Kind = "VALIDATION"
	KindIO                 Kind = "IO"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
)

// Error is the error type returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

// Error returns the message, followed by the cause when there is one.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error carrying the same Kind, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel errors for use with errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied, Message: "permission denied"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation error"}
	ErrIO                 = &Error{Kind: KindIO, Message: "i/o error"}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials, Message: "invalid username or password"}
)

// NotFoundf builds a NOT_FOUND error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// PermissionDeniedf builds a PERMISSION_DENIED error.
func PermissionDeniedf(format string, args ...any) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a CONFLICT error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a VALIDATION error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// IOError wraps a filesystem failure on path.
func IOError(op, path string, err error) *Error {
	return &Error{Kind: KindIO, Message: fmt.Sprintf("%s %s", op, path), cause: err}
}

// KindOf reports the Kind of err, or "" when err is nil or not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
