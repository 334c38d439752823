// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99)
//   - Validation errors (100-199): invalid configuration, windows, trade size
//   - Data errors (200-299): missing or unreadable price data
//   - Signal errors (300-399): moving average and crossover computation
//   - Backtest errors (600-699): engine setup and result output
//   - Market data errors (700-799): downloading and parsing price series
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeDataNotFound, "no price file for %s", ticker)
//	if errors.HasCode(err, errors.ErrCodeDataNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// RowError points at a single malformed record of a price file.
type RowError struct {
	Path   string // File the record was read from
	Line   int    // 1-based line number, 0 when unknown
	Field  string // Column name, empty when the whole row is bad
	Reason string
}

// NewRowError creates a RowError.
func NewRowError(path string, line int, field, reason string) *RowError {
	return &RowError{
		Path:   path,
		Line:   line,
		Field:  field,
		Reason: reason,
	}
}

// Error implements the error interface.
func (e *RowError) Error() string {
	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}

	if e.Field != "" {
		return fmt.Sprintf("%s: column %q: %s", location, e.Field, e.Reason)
	}

	return fmt.Sprintf("%s: %s", location, e.Reason)
}

// IsRowError checks if an error chain contains a RowError.
func IsRowError(err error) bool {
	var rowErr *RowError

	return errors.As(err, &rowErr)
}
