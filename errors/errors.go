// Package errors provides typed error handling for the orionOS kernel
// simulator. It mirrors the five-and-one-split error taxonomy of the
// syscall ABI: fault, not-found, not-executable,
// out-of-memory, invalid-argument and permission. All errors support
// the standard errors.Is()/errors.As() functions for inspection.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a kernel-level failure.
type Kind int

const (
	// Fault is an invalid user pointer, unreadable sector, or full queue.
	Fault Kind = iota
	// NotFound is a missing file, unknown pid, or unbound GUI server.
	NotFound
	// NotExecutable is a bad or unrecognised executable image.
	NotExecutable
	// OutOfMemory is a failed allocation.
	OutOfMemory
	// InvalidArgument is a malformed or out-of-range argument.
	InvalidArgument
	// Permission is an operation forbidden by policy (e.g. killing a
	// kernel process without force).
	Permission
	// Internal is a catch-all for invariant-breaking kernel errors that
	// are not part of the stable syscall error taxonomy.
	Internal
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case Fault:
		return "fault"
	case NotFound:
		return "not found"
	case NotExecutable:
		return "not executable"
	case OutOfMemory:
		return "out of memory"
	case InvalidArgument:
		return "invalid argument"
	case Permission:
		return "permission denied"
	case Internal:
		return "internal error"
	default:
		return "unknown error"
	}
}

// Errno returns the stable syscall return code (-1..-6) for the error
// kind. Internal has no stable errno and returns -1, matching "fault"
// as the closest public-facing code.
func (k Kind) Errno() int32 {
	switch k {
	case Fault:
		return -1
	case NotFound:
		return -2
	case NotExecutable:
		return -3
	case OutOfMemory:
		return -4
	case InvalidArgument:
		return -5
	case Permission:
		return -6
	default:
		return -1
	}
}

// KernelError is an error that occurred during a kernel operation.
type KernelError struct {
	// Op is the operation that failed (e.g. "exec", "gui.send").
	Op string
	// Subject is the pid, path, or drive id the error applies to, if any.
	Subject string
	// Err is the underlying error, if any.
	Err error
	// Kind is the error classification.
	Kind Kind
	// Detail provides additional human-readable context.
	Detail string
}

// Error returns the error message.
func (e *KernelError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var msg string
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: ", e.Subject)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *KernelError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target, by Kind.
func (e *KernelError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*KernelError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new KernelError with the given kind.
func New(kind Kind, op, detail string) *KernelError {
	return &KernelError{Op: op, Kind: kind, Detail: detail}
}

// Wrap wraps an error with operation context.
func Wrap(err error, kind Kind, op string) *KernelError {
	return &KernelError{Op: op, Err: err, Kind: kind}
}

// WrapWithSubject wraps an error with operation context and a subject
// (pid, path, drive id, etc).
func WrapWithSubject(err error, kind Kind, op, subject string) *KernelError {
	return &KernelError{Op: op, Subject: subject, Err: err, Kind: kind}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind Kind, op, detail string) *KernelError {
	return &KernelError{Op: op, Err: err, Kind: kind, Detail: detail}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return kerr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a KernelError.
func GetKind(err error) (Kind, bool) {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return kerr.Kind, true
	}
	return 0, false
}

// Errno extracts the stable syscall return code from an error, or -1
// for any error that is not a *KernelError (an unclassified fault).
func Errno(err error) int32 {
	if err == nil {
		return 0
	}
	if kind, ok := GetKind(err); ok {
		return kind.Errno()
	}
	return Fault.Errno()
}

// Re-exported standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
