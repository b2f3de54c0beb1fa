package racks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a rejected inventory operation.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindOutOfBounds
	KindOverlap
	KindNotFound
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindOutOfBounds:
		return "OutOfBounds"
	case KindOverlap:
		return "Overlap"
	case KindNotFound:
		return "NotFound"
	case KindInvalidInput:
		return "InvalidInput"
	default:
		return "Unknown"
	}
}

// Error is the typed rejection returned by the allocator, the storage
// backends and the inventory service.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is.
var (
	ErrOutOfBounds  = &Error{Kind: KindOutOfBounds}
	ErrOverlap      = &Error{Kind: KindOverlap}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

// OutOfBounds returns an error for a range leaving the rack.
func OutOfBounds(totalUnits int) *Error {
	return &Error{
		Kind:    KindOutOfBounds,
		Message: fmt.Sprintf("invalid position: equipment exceeds rack boundaries (1-%d)", totalUnits),
	}
}

// Overlap returns an error naming the equipment already holding the units.
func Overlap(existing Equipment) *Error {
	return &Error{
		Kind:    KindOverlap,
		Message: fmt.Sprintf("equipment overlaps with existing equipment %q at %s", existing.Name, existing.UnitLabel()),
	}
}

// NotFound returns an error for a missing entity.
func NotFound(entity string, id fmt.Stringer) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", entity, id),
	}
}

// InvalidInput returns an error for a malformed or incomplete request.
func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// MissingFields returns an InvalidInput error listing required fields.
func MissingFields(fields ...string) *Error {
	return InvalidInput("missing required fields: %s", strings.Join(fields, ", "))
}

// KindOf extracts the kind from an error chain. Errors that did not come from
// this package report KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
