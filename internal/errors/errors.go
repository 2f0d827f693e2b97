// Package errors provides standardized domain errors with codes for savekeeper.
//
// Usage:
//
//	// In the backup store - return typed errors
//	if len(refs) == 0 {
//	    return nil, errors.NoBackupFound("no backups for " + name)
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrNoBackupFound) {
//	    log.Info("nothing to restore", "save", name)
//	    return
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	// CodeMalformedSave means save content could not be parsed or is
	// missing the level field. Recovered by tagging the backup as
	// level-unknown; never fatal.
	CodeMalformedSave Code = "MALFORMED_SAVE"
	// CodeFileLocked means the save stayed exclusively locked by the
	// game for the whole retry budget. The change event is dropped.
	CodeFileLocked Code = "FILE_LOCKED"
	// CodeNoBackupFound means a delete event arrived for a save with
	// no prior backups. Logged, no restore performed.
	CodeNoBackupFound Code = "NO_BACKUP_FOUND"
	// CodeIO covers copy/delete/open failures outside the above.
	CodeIO Code = "IO_FAILURE"

	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeInternal   Code = "INTERNAL"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeNoBackupFound:
		return http.StatusNotFound
	case CodeValidation, CodeMalformedSave:
		return http.StatusBadRequest
	case CodeFileLocked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrMalformedSave = &Error{Code: CodeMalformedSave, Message: "malformed save content"}
	ErrFileLocked    = &Error{Code: CodeFileLocked, Message: "file locked"}
	ErrNoBackupFound = &Error{Code: CodeNoBackupFound, Message: "no backup found"}
	ErrIO            = &Error{Code: CodeIO, Message: "io failure"}
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation    = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// MalformedSave creates a malformed save content error.
func MalformedSave(msg string) *Error {
	return &Error{Code: CodeMalformedSave, Message: msg}
}

// FileLocked creates a file locked error.
func FileLocked(msg string) *Error {
	return &Error{Code: CodeFileLocked, Message: msg}
}

// NoBackupFound creates a no backup found error.
func NoBackupFound(msg string) *Error {
	return &Error{Code: CodeNoBackupFound, Message: msg}
}

// NoBackupFoundf creates a no backup found error with formatted message.
func NoBackupFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNoBackupFound, Message: fmt.Sprintf(format, args...)}
}

// IO creates an io failure error.
func IO(msg string) *Error {
	return &Error{Code: CodeIO, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
