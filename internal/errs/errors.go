// Package errs provides the unified error type used across rowcraft.
//
// Every subsystem (database drivers, introspection, query building, the edit
// session, export) wraps its native errors into *errs.Error before returning
// them. Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Cell-level decode outcomes (Unsupported, Unparseable) are values in the
// codec package, not errors, and never surface here.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Server("duplicate key", "email", pgErr)
//
//	// In the edit session, attribute failures to a column:
//	if col, ok := errs.ColumnOf(err); ok {
//	    fieldErrors[col] = err
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
type ErrKind int

const (
	ErrKindUnknown           ErrKind = iota
	ErrKindNotFound                  // no row, no profile, unknown constraint kind
	ErrKindConnectionFailed          // cannot reach or authenticate to the backend
	ErrKindSSLUnsupported            // server refused TLS negotiation
	ErrKindTimeout                   // deadline exceeded
	ErrKindCanceled                  // superseded or cancelled by the caller
	ErrKindQueryFailed               // server-side error, optionally column-attributed
	ErrKindInvalidInput              // bad arguments from the caller
	ErrKindNothingToUpdate           // empty dirty-cell diff
	ErrKindInvalidTransition         // edit session asked to skip the None state
	ErrKindPermissionDenied          // access denied by the backend
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindSSLUnsupported:
		return "ssl_unsupported"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindCanceled:
		return "canceled"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindNothingToUpdate:
		return "nothing_to_update"
	case ErrKindInvalidTransition:
		return "invalid_transition"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all rowcraft subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Column  string // offending column for server errors, "" when row-level
	Cause   error  // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Column != "" {
		msg = fmt.Sprintf("%s (column %q)", msg, e.Column)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Server creates a server-side query error. column may be empty when the
// server did not attribute the failure to a column.
func Server(msg, column string, cause error) *Error {
	return &Error{Kind: ErrKindQueryFailed, Message: msg, Column: column, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrKindNotFound
}

// IsConnectionFailed reports whether err is a connectivity or auth failure.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == ErrKindConnectionFailed
}

// IsSSLUnsupported reports whether the server refused a TLS connection.
func IsSSLUnsupported(err error) bool {
	return KindOf(err) == ErrKindSSLUnsupported
}

// IsTimeout reports whether err was caused by a deadline.
func IsTimeout(err error) bool {
	return KindOf(err) == ErrKindTimeout
}

// IsCanceled reports whether the operation was cancelled or superseded.
func IsCanceled(err error) bool {
	return KindOf(err) == ErrKindCanceled
}

// IsQueryFailed reports whether err is a server-side execution error.
func IsQueryFailed(err error) bool {
	return KindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == ErrKindInvalidInput
}

// IsNothingToUpdate reports whether an update was refused because no cell changed.
func IsNothingToUpdate(err error) bool {
	return KindOf(err) == ErrKindNothingToUpdate
}

// IsInvalidTransition reports whether an edit session transition was refused.
func IsInvalidTransition(err error) bool {
	return KindOf(err) == ErrKindInvalidTransition
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return KindOf(err) == ErrKindPermissionDenied
}

// ColumnOf returns the column a server error is attributed to.
func ColumnOf(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) && e.Column != "" {
		return e.Column, true
	}
	return "", false
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
