// Package schema declares the node-type vocabulary a normalized document is
// built from: per-type data fields and their scalar types, and per-type
// link fields and their variant (single/array/set) plus permitted child
// types.
package schema

import "sort"

// ScalarType is the type of a node data field.
type ScalarType int

const (
	ScalarUnknown ScalarType = iota
	ScalarBool
	ScalarNumber
	ScalarString
	ScalarDate
	ScalarArray // array-of-scalar
)

func (t ScalarType) String() string {
	switch t {
	case ScalarBool:
		return "bool"
	case ScalarNumber:
		return "number"
	case ScalarString:
		return "string"
	case ScalarDate:
		return "date"
	case ScalarArray:
		return "array"
	default:
		return "unknown"
	}
}

// LinkVariant is the shape a child-link field takes.
type LinkVariant int

const (
	LinkUnknown LinkVariant = iota
	LinkSingle
	LinkArray
	LinkSet
)

func (v LinkVariant) String() string {
	switch v {
	case LinkSingle:
		return "single"
	case LinkArray:
		return "array"
	case LinkSet:
		return "set"
	default:
		return "unknown"
	}
}

// OrphansField is the pseudo field every node carries internally: an ordered
// array used by the mutable document to stash nodes temporarily detached
// from their eventual parent.
const OrphansField = "__orphans"

// FieldDef declares a single scalar data field.
type FieldDef struct {
	Type    ScalarType
	Default any
}

// LinkDef declares a single child-link field.
type LinkDef struct {
	Variant        LinkVariant
	PermittedTypes []string
}

// NodeType declares the shape of a node type: its data fields and its
// child-link fields.
type NodeType struct {
	Name   string
	Fields map[string]FieldDef
	Links  map[string]LinkDef
}

// LinkFieldNames returns nt's link field names in sorted order, so callers
// that reconcile or emit commands per field get a deterministic order
// instead of Go's randomized map iteration (spec.md §4.4/§8: "diff output
// is deterministic for fixed inputs").
func (nt NodeType) LinkFieldNames() []string {
	names := make([]string, 0, len(nt.Links))
	for name := range nt.Links {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultData returns a fresh data record populated with every field's
// default value. A field without a declared default gets its type's zero
// value (false, 0, "", or an empty array); a date field without one is
// left absent.
func (nt NodeType) DefaultData() map[string]any {
	out := make(map[string]any, len(nt.Fields))
	for name, f := range nt.Fields {
		if f.Default != nil {
			out[name] = f.Default
			continue
		}
		switch f.Type {
		case ScalarBool:
			out[name] = false
		case ScalarNumber:
			out[name] = float64(0)
		case ScalarString:
			out[name] = ""
		case ScalarArray:
			out[name] = []any{}
		}
	}
	return out
}

// Schema declares the full set of node types in a document family and names
// the root type.
type Schema struct {
	Name     string
	RootType string
	Types    map[string]NodeType
}

// NodeType looks up a node type by name.
func (s *Schema) NodeType(typ string) (NodeType, bool) {
	nt, ok := s.Types[typ]
	return nt, ok
}

// LinkDef looks up a link field's definition on a node type.
func (s *Schema) LinkDef(typ, field string) (LinkDef, bool) {
	nt, ok := s.Types[typ]
	if !ok {
		return LinkDef{}, false
	}
	ld, ok := nt.Links[field]
	return ld, ok
}

// Same reports whether two schemas are the same for diff/merge purposes:
// identical name and root type. The core does not require deep structural
// equality — documents built from forked-but-compatible schemas are the
// caller's concern.
func Same(a, b *Schema) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name && a.RootType == b.RootType
}
