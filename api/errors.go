// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-inotify.

package api

import "fmt"

// Common errors used across the library.
var (
	// ErrServiceClosed terminates every outstanding watcher when the
	// shared notification channel dies or the service is shut down.
	ErrServiceClosed = fmt.Errorf("inotify service is closed")

	// ErrWatchEnded is the clean end-of-stream: the watch was closed by
	// the caller or dropped by the kernel (target deleted or moved).
	ErrWatchEnded = fmt.Errorf("watch ended")

	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrExecutorClosed  = fmt.Errorf("executor is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota

	// ErrCodeInvalidInput covers registration failures caused by the
	// caller: missing path, permission denied, bad descriptor.
	// Maps EINVAL, EACCES, EBADF, EFAULT, ENAMETOOLONG, ENOENT.
	ErrCodeInvalidInput

	// ErrCodeResourceShortage covers kernel resource exhaustion.
	// Maps EMFILE, ENOMEM, ENOSPC (watch limit exceeded).
	ErrCodeResourceShortage

	// ErrCodeMalformed marks a desynchronized notification channel:
	// a record header declared an impossible length. Fatal.
	ErrCodeMalformed

	// ErrCodeClosed marks operations against a closed service.
	ErrCodeClosed

	ErrCodeInternal
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal when err is
// not a structured Error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	if se, ok := err.(*Error); ok {
		return se.Code
	}
	return ErrCodeInternal
}
