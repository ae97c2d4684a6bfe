// Package rterr defines the error taxonomy shared by every rtcontour package.
//
// Callers classify failures with errors.Is against the sentinel values:
//
//	if errors.Is(err, rterr.ErrNotFound) { ... }
//
// Every failure is a deterministic caller input error; nothing here is
// retryable.
package rterr

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure kind.
var (
	// ErrInvalidArgument is returned for a wrong type or enum value
	// (axis, angle, delta, margin, origin shape).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is returned when an angle or delta exceeds its bound.
	ErrOutOfRange = errors.New("out of range")

	// ErrNotFound is returned when a referenced structure or sub-record is absent.
	ErrNotFound = errors.New("not found")

	// ErrStructural is returned when contour data breaks the point-triplet
	// invariant or a contour has no points.
	ErrStructural = errors.New("structural error")

	// ErrIdentityMismatch is returned when documents of different patients
	// are merged.
	ErrIdentityMismatch = errors.New("identity mismatch")
)

// Error carries the operation that failed and a human-readable detail
// alongside one of the sentinel kinds.
type Error struct {
	Op  string // operation, e.g. "translate"
	Err error  // one of the sentinels above
	Msg string
}

// Error formats as "op: kind: msg".
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Msg)
}

// Unwrap returns the sentinel kind.
func (e *Error) Unwrap() error { return e.Err }

func newf(kind error, op, format string, args ...any) error {
	return &Error{Op: op, Err: kind, Msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an ErrInvalidArgument failure.
func InvalidArgument(op, format string, args ...any) error {
	return newf(ErrInvalidArgument, op, format, args...)
}

// OutOfRange builds an ErrOutOfRange failure.
func OutOfRange(op, format string, args ...any) error {
	return newf(ErrOutOfRange, op, format, args...)
}

// NotFound builds an ErrNotFound failure.
func NotFound(op, format string, args ...any) error {
	return newf(ErrNotFound, op, format, args...)
}

// Structural builds an ErrStructural failure.
func Structural(op, format string, args ...any) error {
	return newf(ErrStructural, op, format, args...)
}

// IdentityMismatch builds an ErrIdentityMismatch failure.
func IdentityMismatch(op, format string, args ...any) error {
	return newf(ErrIdentityMismatch, op, format, args...)
}

// Kind reports which sentinel err wraps, or nil when it wraps none of them.
func Kind(err error) error {
	for _, k := range []error{ErrInvalidArgument, ErrOutOfRange, ErrNotFound, ErrStructural, ErrIdentityMismatch} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// WithOp re-scopes err under op, prefixing detail to its message. Errors
// that carry no kind are wrapped with fmt.Errorf.
func WithOp(err error, op, detail string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		msg := e.Msg
		if detail != "" {
			msg = detail + ": " + msg
		}
		return &Error{Op: op, Err: e.Err, Msg: msg}
	}
	if detail == "" {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %s: %w", op, detail, err)
}
