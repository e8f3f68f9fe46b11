// Package gameerr defines the error kinds shared by the game, arcade and
// leader packages, and how each kind surfaces to callers.
package gameerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how callers are expected to react to it.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindPhase       Kind = "phase"
	KindBudget      Kind = "budget"
	KindConcurrency Kind = "concurrency"
	KindNotFound    Kind = "not_found"
	KindTransport   Kind = "transport"
	KindInternal    Kind = "internal"
)

// Error is a domain error with a stable code that clients can branch on.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

// New returns a sentinel domain error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Transport wraps err as a transport failure (store or network unreachable).
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &transportError{op: op, err: err}
}

type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *transportError) Unwrap() error {
	return e.err
}

// KindOf reports the kind of err, looking through wrapping.
// Errors that carry no kind are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	var te *transportError
	if errors.As(err, &te) {
		return KindTransport
	}
	return KindInternal
}

// CodeOf returns the stable code of the first domain error in err's chain.
func CodeOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	switch KindOf(err) {
	case KindTransport:
		return "TRANSPORT"
	case "":
		return ""
	default:
		return "INTERNAL"
	}
}

// IsExpected reports whether err is a user-facing outcome that should be
// returned as a message rather than treated as a failure of the call.
func IsExpected(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindPhase, KindBudget, KindNotFound, KindConcurrency:
		return true
	}
	return false
}

// Message returns the human readable message of the outermost domain error,
// falling back to err.Error().
func Message(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
