// Package apperr defines the error taxonomy shared by the storefront packages.
// Handlers translate an *Error into a status code, a message and an optional
// redirect path; anything that is not an *Error is treated as internal.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ENOTFOUND     = "not_found"
	EINVALID      = "invalid"
	EUNAUTHORIZED = "unauthorized"
	EFORBIDDEN    = "forbidden"
	EPRECONDITION = "precondition"
	ECONFLICT     = "conflict"
	EINTERNAL     = "internal"
)

type Error struct {
	Code     string
	Message  string
	Fields   map[string]string
	Redirect string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by identity first and falls back to code+message so a
// copied sentinel (WithRedirect) still compares equal to its origin.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return e.Code == t.Code && e.Message == t.Message
}

// WithRedirect returns a copy of e pointing the client at path.
func (e *Error) WithRedirect(path string) *Error {
	cp := *e
	cp.Redirect = path
	return &cp
}

// Wrap returns a copy of e that carries cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func NotFound(msg string) *Error { return &Error{Code: ENOTFOUND, Message: msg} }

func Invalid(msg string) *Error { return &Error{Code: EINVALID, Message: msg} }

// InvalidFields builds a validation error with per-field messages.
func InvalidFields(msg string, fields map[string]string) *Error {
	return &Error{Code: EINVALID, Message: msg, Fields: fields}
}

func Unauthorized(msg string) *Error { return &Error{Code: EUNAUTHORIZED, Message: msg} }

func Forbidden(msg string) *Error { return &Error{Code: EFORBIDDEN, Message: msg} }

func Precondition(msg string) *Error { return &Error{Code: EPRECONDITION, Message: msg} }

func Conflict(msg string) *Error { return &Error{Code: ECONFLICT, Message: msg} }

func Internal(msg string, cause error) *Error {
	return &Error{Code: EINTERNAL, Message: msg, Err: cause}
}

// Code returns the code of the first *Error in err's chain, EINTERNAL otherwise.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// As is a shorthand for errors.As with *Error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
