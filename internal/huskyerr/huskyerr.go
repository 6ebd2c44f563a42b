// Package huskyerr defines the error taxonomy shared across the orchestrator.
// Every error that crosses a component boundary carries a Kind so that
// callers (in particular cmd/huskycat's exit-code mapping) never need to
// string-match a message.
package huskyerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error per the orchestrator's error taxonomy.
type Kind string

const (
	// KindConfiguration covers invalid registries, malformed config files,
	// and unrecognized modes. Fatal at startup.
	KindConfiguration Kind = "configuration"

	// KindUnavailable covers an Execution Router verdict of unavailable for
	// a required tool. Never fatal at run level on its own.
	KindUnavailable Kind = "unavailable"

	// KindInvocation covers a tool that ran and produced findings.
	KindInvocation Kind = "invocation"

	// KindTimeout covers a tool whose deadline expired.
	KindTimeout Kind = "timeout"

	// KindIO covers Run Store write failures, lock acquisition failures, and
	// unparsable PID files.
	KindIO Kind = "io"

	// KindInterrupted covers a user-initiated abort.
	KindInterrupted Kind = "interrupted"

	// KindProtocol covers a malformed JSON-RPC message in agent mode.
	KindProtocol Kind = "protocol"
)

// Error is the concrete error type carrying a Kind and a human message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, returning
// ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ExitCode maps a Kind to the process exit code defined in spec.md §6.
func ExitCode(kind Kind) int {
	switch kind {
	case KindConfiguration, KindIO:
		return 2
	case KindInvocation, KindTimeout:
		return 1
	case KindInterrupted:
		return 130
	default:
		return 2
	}
}
