// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Stable machine-readable error codes surfaced to API clients.
const (
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodePostNotFound         = "POST_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidRole          = "INVALID_ROLE"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusCoder is implemented by errors that carry their own HTTP status and stable code.
type StatusCoder interface {
	error
	HTTPStatus() int
	Code() string
}

// Error is a coded domain error safe to show to API callers.
type Error struct {
	Status  int
	Kind    string
	Message string
}

// NewError builds a coded error.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Kind: code, Message: message}
}

// BadRequest builds a 400 coded error.
func BadRequest(code, message string) *Error {
	return NewError(http.StatusBadRequest, code, message)
}

// NotFound builds a 404 coded error.
func NotFound(code, message string) *Error {
	return NewError(http.StatusNotFound, code, message)
}

// Conflict builds a 409 coded error.
func Conflict(code, message string) *Error {
	return NewError(http.StatusConflict, code, message)
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus implements StatusCoder.
func (e *Error) HTTPStatus() int { return e.Status }

// Code implements StatusCoder.
func (e *Error) Code() string { return e.Kind }

// Is lets errors.Is match coded errors against the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return e.Status == http.StatusBadRequest
	case ErrDuplicate:
		return e.Status == http.StatusConflict
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// Classify resolves an error into status, code and user-safe detail. Unknown errors
// become an opaque 500.
func Classify(err error) (status int, code, detail string) {
	var coded StatusCoder
	switch {
	case errors.As(err, &coded):
		return coded.HTTPStatus(), coded.Code(), coded.Error()
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict, CodeConflict, err.Error()
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, CodeInvalidInput, err.Error()
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, CodeForbidden, err.Error()
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, ""
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, code, detail := Classify(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="inkwell"`)
	}
	Problem(w, status, http.StatusText(status), code, detail)
}

// UserSafeMessage returns a message suitable for rendering in a page.
func UserSafeMessage(err error) string {
	status, _, detail := Classify(err)
	if status == http.StatusInternalServerError || detail == "" {
		return "Something went wrong. Please try again."
	}
	return detail
}
