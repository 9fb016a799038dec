package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a platform failure.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindScopeNotFound ErrorKind = "scope_not_found"
	KindUnauthorized  ErrorKind = "unauthorized"
	KindConflict      ErrorKind = "conflict"
	KindTransport     ErrorKind = "transport"
	KindInvalid       ErrorKind = "invalid"
	KindUnknown       ErrorKind = "unknown"
)

// Error is a typed platform failure. Message is the platform's own wording.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an Error of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing resource of the given type.
func NotFound(resource, name string) *Error {
	return Errorf(KindNotFound, "%s %s not found", resource, name)
}

// KindOf classifies err. Untyped network and deadline errors are transport
// failures; anything else unrecognized is KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}
	return KindUnknown
}
