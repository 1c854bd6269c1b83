// Package apierr defines errors that carry the HTTP status a caller should
// answer with.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an error with an HTTP status code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Size is the resource size for 416 responses (Content-Range: bytes */Size).
	Size int64 `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code, so errors.Is(err, ErrConflict) works
// for errors built with New or Newf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New creates a new error with the given code and message.
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new error with the given code and formatted message.
func Newf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Status codes surfaced by the helpers.
const (
	CodeBadRequest          = http.StatusBadRequest
	CodeConflict            = http.StatusConflict
	CodeRangeNotSatisfiable = http.StatusRequestedRangeNotSatisfiable
	CodeInternalError       = http.StatusInternalServerError
)

var (
	ErrBadRequest          = New(CodeBadRequest, "bad request")
	ErrConflict            = New(CodeConflict, "destination already exists")
	ErrRangeNotSatisfiable = New(CodeRangeNotSatisfiable, "requested range not satisfiable")
)

// NotSatisfiable builds a 416 error for a resource of the given size.
func NotSatisfiable(size int64) *Error {
	return &Error{
		Code:    CodeRangeNotSatisfiable,
		Message: fmt.Sprintf("requested range not satisfiable (size %d)", size),
		Size:    size,
	}
}

// StatusOf returns the HTTP status carried by err, or 500 for plain errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternalError
}

// IsCode reports whether err carries the given status code.
func IsCode(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
