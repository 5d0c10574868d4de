// Package apperrors provides application-level errors that carry a stable code.
package apperrors

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeStateConflict    = "STATE_CONFLICT"
	CodeConcurrentUpdate = "CONCURRENT_UPDATE"
	CodeStoreFailed      = "STORE_FAILED"
	CodeInternal         = "INTERNAL"
)

// AppError represents an application-level error with a code and optional cause.
type AppError struct {
	Cause   error
	Code    string
	Message string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError with the same code.
// This lets callers match on the exported sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
//
//nolint:gochecknoglobals // sentinel errors
var (
	ErrNotFound         = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrInvalidInput     = &AppError{Code: CodeInvalidInput, Message: "invalid input"}
	ErrStateConflict    = &AppError{Code: CodeStateConflict, Message: "state conflict"}
	ErrConcurrentUpdate = &AppError{Code: CodeConcurrentUpdate, Message: "concurrent update"}
	ErrStoreFailed      = &AppError{Code: CodeStoreFailed, Message: "store failure"}
)

// New creates a new AppError.
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NotFound reports an unknown resource.
func NotFound(format string, args ...any) *AppError {
	return New(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

// Validation reports a malformed or missing input field. It is returned before
// any external call is made.
func Validation(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("%s: %s", field, reason), nil)
}

// StateConflict reports an operation that does not fit the current status.
func StateConflict(format string, args ...any) *AppError {
	return New(CodeStateConflict, fmt.Sprintf(format, args...), nil)
}

// ConcurrentUpdate reports a lost optimistic-concurrency race.
func ConcurrentUpdate(id string) *AppError {
	return New(CodeConcurrentUpdate, fmt.Sprintf("session %s was modified concurrently", id), nil)
}

// Store wraps a storage failure.
func Store(op string, cause error) *AppError {
	return New(CodeStoreFailed, op, cause)
}

// CodeOf returns the code of the first AppError in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
