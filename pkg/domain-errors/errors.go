// Package domainerrors defines the single coded error type used across the
// platform. Services construct these directly for domain failures, or wrap
// sentinel errors coming out of stores and external clients so transport can
// map every failure to a response without inspecting error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and caller branching.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeAlreadyExists     Code = "already_exists"
	CodeUnauthorized      Code = "unauthorized"
	CodeAnonymousCaller   Code = "anonymous_caller"
	CodeInvalidInput      Code = "invalid_input"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeStateConflict     Code = "state_conflict"
	CodeExternal          Code = "external"
	CodeInternal          Code = "internal"
)

// Error is a coded domain error. Message is safe to return to callers for
// every code except CodeInternal, which transport reduces to a generic body.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds a coded error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted caller-facing message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is/As for sentinel checks.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// Validation is the factory for malformed-input failures; it exists because
// validation errors are constructed from more call sites than any other kind.
func Validation(message string) *Error {
	return New(CodeInvalidInput, message)
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.wrapped
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the code of the outermost coded error, or CodeInternal when
// err carries no code at all.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
