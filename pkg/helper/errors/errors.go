// Package errors provides standardized error handling utilities for ferrocp.
// It wraps around the standard errors package and fmt.Errorf to provide consistent error handling patterns.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matching the copy engine's failure taxonomy. Engines and
// the walker classify filesystem failures into one of these so callers can
// errors.Is a FileOutcome's error against its failure class.
var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyExists       = errors.New("already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrIoTransient         = errors.New("transient i/o error")
	ErrIoFatal             = errors.New("fatal i/o error")
	ErrZeroCopyUnsupported = errors.New("zero-copy not supported")
	ErrOutOfMemory         = errors.New("out of memory")
	ErrCancelled           = errors.New("operation cancelled")
	ErrTimeout             = errors.New("operation timed out")
)

// New creates a new error with the given message.
// This is a direct wrapper around errors.New.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context using fmt.Errorf and the %w verb.
// If err is nil, Wrap returns nil.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("%s: %w", format, err)
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Wrapf wraps an error with a formatted message.
// This is the same as Wrap but makes the formatting more explicit in the function name.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, format, args...)
}

// Is reports whether any error in err's tree matches target.
// This is a direct wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if one is found, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a direct wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err, if err implements Unwrap.
// Otherwise, Unwrap returns nil.
// This is a direct wrapper around errors.Unwrap.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func formatError(baseError error, format string, args ...interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: %w", format, baseError)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), baseError)
}

// NotFoundf returns an error indicating that the requested file or directory was not found.
func NotFoundf(format string, args ...interface{}) error {
	return formatError(ErrNotFound, format, args...)
}

// PermissionDeniedf returns an error indicating that the current user lacks
// permission for the attempted filesystem operation.
func PermissionDeniedf(format string, args ...interface{}) error {
	return formatError(ErrPermissionDenied, format, args...)
}

// AlreadyExistsf returns an error indicating that the destination already exists
// and the configured overwrite policy refused to replace it.
func AlreadyExistsf(format string, args ...interface{}) error {
	return formatError(ErrAlreadyExists, format, args...)
}

// InvalidArgumentf returns an error indicating a malformed CopyRequest or option.
func InvalidArgumentf(format string, args ...interface{}) error {
	return formatError(ErrInvalidArgument, format, args...)
}

// IoTransientf returns an error indicating a transient I/O failure that the
// retry policy should retry (e.g. EINTR, EAGAIN, a momentarily busy device).
func IoTransientf(format string, args ...interface{}) error {
	return formatError(ErrIoTransient, format, args...)
}

// IoFatalf returns an error indicating an I/O failure that retrying cannot fix
// (e.g. ENOSPC, a read-only filesystem, a corrupt device).
func IoFatalf(format string, args ...interface{}) error {
	return formatError(ErrIoFatal, format, args...)
}

// ZeroCopyUnsupportedf returns an error indicating that a zero-copy syscall
// was attempted but rejected by the kernel (ENOSYS, EXDEV, EINVAL); callers
// should fall back to a buffered engine rather than fail the file outright.
func ZeroCopyUnsupportedf(format string, args ...interface{}) error {
	return formatError(ErrZeroCopyUnsupported, format, args...)
}

// OutOfMemoryf returns an error indicating that the buffer pool could not
// satisfy an allocation within its configured memory ceiling.
func OutOfMemoryf(format string, args ...interface{}) error {
	return formatError(ErrOutOfMemory, format, args...)
}

// Cancelledf returns an error indicating that an operation was cancelled via context.
func Cancelledf(format string, args ...interface{}) error {
	return formatError(ErrCancelled, format, args...)
}

// Timeoutf returns an error indicating that an operation timed out.
func Timeoutf(format string, args ...interface{}) error {
	return formatError(ErrTimeout, format, args...)
}

// Newf creates a new error with a formatted message.
// This is equivalent to fmt.Errorf without any wrapped errors.
func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Multiple combines multiple errors into a single error.
// If no errors are provided, returns nil.
// If only one error is provided, returns that error.
// If multiple errors are provided, returns an error that contains all of them.
func Multiple(errs ...error) error {
	validErrors := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			validErrors = append(validErrors, err)
		}
	}

	switch len(validErrors) {
	case 0:
		return nil
	case 1:
		return validErrors[0]
	default:
		return &multiError{errors: validErrors}
	}
}

// multiError is an error that wraps multiple errors
type multiError struct {
	errors []error
}

// Error returns a string representation of all errors
func (me *multiError) Error() string {
	if len(me.errors) == 0 {
		return ""
	}

	if len(me.errors) == 1 {
		return me.errors[0].Error()
	}

	messages := make([]string, len(me.errors))
	for i, err := range me.errors {
		messages[i] = err.Error()
	}

	return strings.Join(messages, "; ")
}

// Unwrap returns the first error for error unwrapping
func (me *multiError) Unwrap() error {
	if len(me.errors) == 0 {
		return nil
	}
	return me.errors[0]
}

// Errors returns all wrapped errors
func (me *multiError) Errors() []error {
	return me.errors
}
