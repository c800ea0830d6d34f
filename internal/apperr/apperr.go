// Package apperr carries the engine's error taxonomy. Handlers map a Kind to
// an HTTP status; everything below the handler layer deals in kinds only.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation - malformed or missing input.
	KindValidation
	// KindUnauthorized - no usable identity or credential supplied.
	KindUnauthorized
	// KindForbidden - identity or credential supplied but wrong.
	KindForbidden
	// KindNotFound - no such file, or hidden as if absent.
	KindNotFound
	// KindGated - the file exists but its downloadable_at has not been reached.
	KindGated
	// KindCapacity - file too large, batch too large, or archive ceiling hit.
	KindCapacity
	// KindIntegrity - a metadata row exists but the backing object is gone.
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindGated:
		return "gated"
	case KindCapacity:
		return "capacity"
	case KindIntegrity:
		return "integrity"
	}
	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	// AvailableAt is set on KindGated errors only.
	AvailableAt time.Time

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is makes errors.Is match any *Error of the same kind, so callers can test
// against e.g. apperr.New(apperr.KindNotFound, "") without comparing messages.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// Gated builds a KindGated error carrying the availability timestamp.
func Gated(availableAt time.Time) *Error {
	return &Error{
		Kind:        KindGated,
		Message:     fmt.Sprintf("file becomes downloadable at %s", availableAt.Format("2006-01-02 15:04:05")),
		AvailableAt: availableAt,
	}
}

// KindOf extracts the Kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
