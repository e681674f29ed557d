// Package errors provides standardized domain errors with codes for the TuneVault client engine.
//
// Usage:
//
//	// In components - return typed errors
//	if blobMissing {
//	    return errors.NotFound("audio blob not found")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrNotFound) {
//	    // fall back to a lighter data source
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the engine.
const (
	// CodeStorage marks local persistent store failures. The cache is an
	// optimization, so callers treat these as non-fatal.
	CodeStorage Code = "STORAGE"
	// CodeNetwork marks content provider transport failures.
	CodeNetwork Code = "NETWORK"
	// CodeDecrypt marks per-blob decryption failures.
	CodeDecrypt Code = "DECRYPT"
	// CodeNotFound marks absent tracks, blobs, or remote records.
	CodeNotFound Code = "NOT_FOUND"
	// CodeValidation marks rejected request parameters.
	CodeValidation Code = "VALIDATION"
	// CodeInternal marks everything else.
	CodeInternal Code = "INTERNAL"
)

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
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

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrStorage    = &Error{Code: CodeStorage, Message: "storage error"}
	ErrNetwork    = &Error{Code: CodeNetwork, Message: "network error"}
	ErrDecrypt    = &Error{Code: CodeDecrypt, Message: "decrypt error"}
	ErrNotFound   = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal   = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// Storage creates a storage error.
func Storage(msg string) *Error {
	return &Error{Code: CodeStorage, Message: msg}
}

// Storagef creates a storage error with formatted message.
func Storagef(format string, args ...any) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf(format, args...)}
}

// Network creates a network error.
func Network(msg string) *Error {
	return &Error{Code: CodeNetwork, Message: msg}
}

// Networkf creates a network error with formatted message.
func Networkf(format string, args ...any) *Error {
	return &Error{Code: CodeNetwork, Message: fmt.Sprintf(format, args...)}
}

// Decrypt creates a decrypt error.
func Decrypt(msg string) *Error {
	return &Error{Code: CodeDecrypt, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
