package session

import (
	"errors"
	"net/http"
)

// Store-level sentinels. The Service maps these onto the taxonomy below
// before anything crosses the HTTP boundary.
var (
	ErrNotFound       = errors.New("session: not found")
	ErrDuplicateEmail = errors.New("session: email already registered")
)

// Kind is the closed set of failure classes a session operation can produce.
type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindInternal
)

// HTTPStatus returns the response status carried by the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the typed failure every Service operation returns. Internal
// errors keep their cause for server-side logging; the message is all a
// client ever sees.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// BadRequest signals malformed or missing input.
func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// Unauthorized signals bad credentials or an invalid, expired or missing token.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden signals an authenticated but disallowed request.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound signals a missing resource.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal wraps an unexpected failure. The cause never reaches clients.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "something went wrong", cause: cause}
}
