// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Value errors
	ErrUnsupportedType = &Error{Code: "UNSUPPORTED_TYPE", Message: "unsupported value type"}
	ErrEncode          = &Error{Code: "ENCODE_FAILED", Message: "encoding value failed"}
	ErrDecode          = &Error{Code: "DECODE_FAILED", Message: "decoding entry failed"}

	// ErrMissingSectionHeader marks config text without a [section] line.
	// The store reports such entries as absent instead of failing.
	ErrMissingSectionHeader = &Error{Code: "MISSING_SECTION_HEADER", Message: "config text has no section header"}

	// Archive errors
	ErrArchiveNotFound = &Error{Code: "ARCHIVE_NOT_FOUND", Message: "archive does not exist"}
	ErrEntryNotFound   = &Error{Code: "ENTRY_NOT_FOUND", Message: "entry not found"}

	// Stream errors
	ErrInvalidMode    = &Error{Code: "INVALID_MODE", Message: "invalid stream mode"}
	ErrReadOnly       = &Error{Code: "READ_ONLY", Message: "stream opened read-only"}
	ErrStreamClosed   = &Error{Code: "STREAM_CLOSED", Message: "stream is closed"}
	ErrSeekOutOfRange = &Error{Code: "SEEK_OUT_OF_RANGE", Message: "seek position outside buffer"}

	// Snapshot errors
	ErrSnapshotNotFound = &Error{Code: "SNAPSHOT_NOT_FOUND", Message: "snapshot not found"}
	ErrSnapshotCorrupt  = &Error{Code: "SNAPSHOT_CORRUPT", Message: "snapshot content does not match manifest"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// API errors
	ErrInvalidRequest = &Error{Code: "INVALID_REQUEST", Message: "invalid request"}
	ErrUnauthorized   = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}
)
