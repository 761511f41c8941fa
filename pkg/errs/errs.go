// Package errs defines the structured error type shared by the liveset
// engine. Every failure surfaced by the query, table and results packages
// is an *Error carrying a Kind, so callers can dispatch on the category
// without matching message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorizes an engine failure.
type Kind string

const (
	// KindArgument reports a malformed call: wrong argument count, an
	// unconvertible bind argument, an empty sort descriptor list.
	KindArgument Kind = "argument"

	// KindSchema reports a reference to a property that does not exist
	// on the object type being queried or sorted.
	KindSchema Kind = "schema"

	// KindPredicateSyntax reports predicate text that failed to parse.
	KindPredicateSyntax Kind = "predicate_syntax"

	// KindIndexOutOfRange reports a positional access outside [0, size).
	KindIndexOutOfRange Kind = "index_out_of_range"

	// KindTypeNotFound reports an object type name absent from the registry.
	KindTypeNotFound Kind = "type_not_found"

	// KindConversion reports a value that cannot be represented as the
	// declared property type.
	KindConversion Kind = "conversion"

	// KindConstraint reports a record rejected by a document constraint.
	KindConstraint Kind = "constraint"

	// KindIO reports a failure reading or writing an external source.
	KindIO Kind = "io"
)

// Error is the concrete error type returned across the engine.
type Error struct {
	Kind     Kind
	Detail   string
	Property string // offending property or type name, when known
	Index    int    // offending position for index errors, -1 otherwise
	Cause    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Detail)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so sentinel-style checks like
// errors.Is(err, &Error{Kind: KindSchema}) work without identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind with a formatted detail message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Index: -1}
}

// Argument reports a malformed argument list or value.
func Argument(format string, args ...any) *Error {
	return New(KindArgument, format, args...)
}

// Schema reports that property does not exist on the named object type.
func Schema(property, typeName string) *Error {
	err := New(KindSchema, "property '%s' does not exist on object type '%s'", property, typeName)
	err.Property = property
	return err
}

// Syntax reports unparseable predicate text.
func Syntax(text string, cause error) *Error {
	err := New(KindPredicateSyntax, "invalid predicate %q", text)
	err.Cause = cause
	return err
}

// OutOfRange reports a positional access outside the valid window.
func OutOfRange(index, size int) *Error {
	err := New(KindIndexOutOfRange, "requested index %d in results of size %d", index, size)
	err.Index = index
	return err
}

// TypeNotFound reports an object type missing from the registry.
func TypeNotFound(name string) *Error {
	err := New(KindTypeNotFound, "object type '%s' not found in registry", name)
	err.Property = name
	return err
}

// Conversion reports a value that cannot be stored under property.
func Conversion(property string, format string, args ...any) *Error {
	err := New(KindConversion, format, args...)
	err.Property = property
	return err
}

// Constraint reports a record rejected by a document constraint.
func Constraint(format string, args ...any) *Error {
	return New(KindConstraint, format, args...)
}

// IO wraps a filesystem or database failure.
func IO(cause error, format string, args ...any) *Error {
	err := New(KindIO, format, args...)
	err.Cause = cause
	return err
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or the empty Kind for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
