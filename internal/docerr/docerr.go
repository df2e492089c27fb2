// Package docerr declares the error taxonomy shared by the mutation, diff,
// and merge engines.
//
// Most operations fail fatally: a bad reference, a malformed link shape, an
// unknown command kind. Callers that want progress over correctness (see
// [github.com/mibar/hierdoc/pkg/hierdoc.DocReducer]) stop at the first
// such error and fall back to the last valid state; errors.Is/As against
// the types below tell the kinds apart.
package docerr

import "fmt"

// Base sentinel errors, usable with errors.Is.
var (
	ErrBadReference       = fmt.Errorf("bad-reference")
	ErrMalformedLinkShape = fmt.Errorf("malformed-link-shape")
	ErrBadCommand         = fmt.Errorf("bad-command")
	ErrBadIndex           = fmt.Errorf("bad-index")
	ErrInvariantViolation = fmt.Errorf("invariant-violation")
	ErrSchemaMismatch     = fmt.Errorf("schema-mismatch")
)

// ReferenceError is returned when a path or element reference cannot be
// resolved against the current document (missing node, unknown link field).
type ReferenceError struct {
	Detail string
}

func (e *ReferenceError) Error() string { return "bad-reference: " + e.Detail }
func (e *ReferenceError) Unwrap() error { return ErrBadReference }

// LinkShapeError is returned when a link field's children-record shape does
// not match what the schema declares for it (e.g. an array found where the
// schema declares a single link).
type LinkShapeError struct {
	Field string
	Want  string
	Got   string
}

func (e *LinkShapeError) Error() string {
	return fmt.Sprintf("malformed-link-shape: field %q wants %s, got %s", e.Field, e.Want, e.Got)
}
func (e *LinkShapeError) Unwrap() error { return ErrMalformedLinkShape }

// CommandError is returned for an unrecognized command kind.
type CommandError struct {
	Kind string
}

func (e *CommandError) Error() string { return fmt.Sprintf("bad-command: unknown kind %q", e.Kind) }
func (e *CommandError) Unwrap() error { return ErrBadCommand }

// IndexError is returned when an array-link index is out of range.
type IndexError struct {
	Field string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("bad-index: index %d out of range for field %q (len %d)", e.Index, e.Field, e.Len)
}
func (e *IndexError) Unwrap() error { return ErrBadIndex }

// InvariantError is returned when an internal consistency check fails
// (duplicate reference in an array link, orphaned parent back-reference...).
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string { return "invariant-violation: " + e.Detail }
func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// SchemaMismatchError is returned (wrapped, not propagated as a failure) when
// the documents passed to a three-way merge do not share a schema or root
// type. Diff has no error return and signals the same case with an empty
// command list.
type SchemaMismatchError struct {
	Detail string
}

func (e *SchemaMismatchError) Error() string { return "schema-mismatch: " + e.Detail }
func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }
