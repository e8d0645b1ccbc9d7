// internal/app/system/apperr/apperr.go
//
// Package apperr is the domain error type shared by the service layer.
// Stores return sentinel errors; services translate them into apperr
// values carrying a kind and optional structured detail so callers can
// map failures without string matching.
package apperr

import "errors"

// Kind classifies a domain failure.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindBadRequest Kind = "bad_request"
	KindInternal   Kind = "internal"
)

// Error is a domain error with a kind, a message, and optional detail
// metadata for callers that render structured responses.
type Error struct {
	Kind    Kind
	Message string
	Detail  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a domain error with a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetail creates a domain error carrying structured detail.
func WithDetail(kind Kind, message string, detail map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func BadRequest(message string) *Error { return New(KindBadRequest, message) }

// KindOf returns the kind of err when it is (or wraps) an *Error, and
// KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// DetailOf returns the detail map of err when it carries one.
func DetailOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return nil
}

// IsNotFound reports whether err is a not_found domain error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsForbidden reports whether err is a forbidden domain error.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsConflict reports whether err is a conflict domain error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is a validation domain error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsBadRequest reports whether err is a bad_request domain error.
func IsBadRequest(err error) bool { return KindOf(err) == KindBadRequest }
