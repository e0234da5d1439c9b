// Package apperr is the error taxonomy shared by the services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for the HTTP layer.
type Code int

const (
	CodeInternal Code = iota
	CodeNotFound
	CodeValidation
)

func (c Code) String() string {
	switch c {
	case CodeNotFound:
		return "not_found"
	case CodeValidation:
		return "validation"
	default:
		return "internal"
	}
}

// Error carries a client-safe message. The wrapped cause is for logs only.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Sentinels for errors.Is.
var (
	ErrNotFound   = &Error{Code: CodeNotFound}
	ErrValidation = &Error{Code: CodeValidation}
)

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected failure. msg names the failed operation in logs.
func Internal(msg string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: cause}
}

// InsufficientInventory reports a reservation larger than what is available.
func InsufficientInventory(available, requested int) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Insufficient inventory. Available: %d, Requested: %d", available, requested),
		Details: map[string]any{"available": available, "requested": requested},
	}
}

// CodeOf returns the code of the first *Error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsInternal reports whether err should reach the client only as a generic failure.
// Errors outside the taxonomy count as internal.
func IsInternal(err error) bool { return CodeOf(err) == CodeInternal }
