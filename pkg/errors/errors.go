// Package errors provides structured error types for scoreslides.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the core engine, CLI and HTTP presenter
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The core engine reports three contract violations:
//   - EMPTY_DATASET: aggregation over zero records
//   - DUPLICATE_IDENTITY: two reconciliation items share one identity
//   - UNKNOWN_METRIC: a metric or sort key is not configured for a chart
//
// The remaining codes cover configuration, loading and presentation.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownMetric, "unknown metric %q", name)
//	if errors.Is(err, errors.ErrCodeUnknownMetric) {
//	    // fall back to the previous view state
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidDataset, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Engine contract violations
	ErrCodeEmptyDataset      Code = "EMPTY_DATASET"
	ErrCodeDuplicateIdentity Code = "DUPLICATE_IDENTITY"
	ErrCodeUnknownMetric     Code = "UNKNOWN_METRIC"
	ErrCodeUnknownSeries     Code = "UNKNOWN_SERIES"
	ErrCodeDisposed          Code = "DISPOSED"

	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidDataset Code = "INVALID_DATASET"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsContractViolation reports whether err is one of the engine's local
// contract violations. These are never retried: the same call reproduces them.
func IsContractViolation(err error) bool {
	switch GetCode(err) {
	case ErrCodeEmptyDataset, ErrCodeDuplicateIdentity, ErrCodeUnknownMetric, ErrCodeUnknownSeries:
		return true
	}
	return false
}
