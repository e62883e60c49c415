package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every error the data-access layer can surface, regardless
// of which source (remote backend or local store) produced it.
type Kind string

const (
	KindUnreachable  Kind = "unreachable"  // remote call could not be completed
	KindNotFound     Kind = "not_found"    // target id does not exist in the active source
	KindValidation   Kind = "validation"   // caller-supplied data violates an entity invariant
	KindUnauthorized Kind = "unauthorized" // credential rejected by the remote source
	KindMalformed    Kind = "malformed"    // stream payload could not be decoded
)

// Error is the single error shape returned across the gateway surface.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error with a static message.
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap attaches a kind and operation to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
