// Package apperr carries typed errors from services to the HTTP layer.
// Services return *Error values; handlers map them with HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error category.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is malformed or out-of-range input. No state was changed.
	KindValidation
	KindNotFound
	// KindConflict is a request that does not fit the current state (e.g. start while running).
	KindConflict
	// KindUpstream is a call or payment provider failure. Never retried in-process.
	KindUpstream
	KindUnauthorized
	KindForbidden
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a domain error with a Kind for transport mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Validation(op, message string) *Error { return New(KindValidation, op, message) }

func NotFound(op, message string) *Error { return New(KindNotFound, op, message) }

func Conflict(op, message string) *Error { return New(KindConflict, op, message) }

func Upstream(op, message string, err error) *Error { return Wrap(KindUpstream, op, message, err) }

// KindOf walks the wrap chain and returns the first Kind found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status returns the HTTP status for any error, defaulting to 500.
func Status(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
