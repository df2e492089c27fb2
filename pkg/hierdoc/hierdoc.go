// Package hierdoc provides normalized hierarchical document mutation,
// diffing and three-way merging.
//
// A document is a schema-typed tree: each node carries scalar data fields
// and child links (single, ordered array, or keyed set), stored in a flat
// per-type id→node table with a single root reference rather than nested
// pointers. Three engines operate over this shape:
//
//	cmds := hierdoc.Diff(base, later)
//	merged, conflicts, err := hierdoc.ThreeWayMerge(base, mine, their, nil)
//
// Basic usage, building a document from scratch:
//
//	doc := hierdoc.CreateNormalizedDocument(mySchema, "root-1", nil)
//	m := hierdoc.MutableDocument(doc)
//	ref, _ := m.Insert(m.GetRoot(), hierdoc.Position{Field: "children"}, hierdoc.ElementSpec{Type: "Node"})
//	doc = m.Snapshot()
package hierdoc

import (
	"log/slog"

	"github.com/mibar/hierdoc/internal/arraymerge"
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/lcsdiff"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/telemetry"
	"github.com/mibar/hierdoc/internal/treediff"
	"github.com/mibar/hierdoc/internal/treemerge"
	"github.com/mibar/hierdoc/internal/walker"
)

// Re-exported data model types (spec.md §3).
type (
	Document    = docmodel.Document
	Node        = docmodel.Node
	ElementRef  = docmodel.ElementRef
	ParentRef   = docmodel.ParentRef
	LinkValue   = docmodel.LinkValue
	Schema      = schema.Schema
	NodeType    = schema.NodeType
	FieldDef    = schema.FieldDef
	LinkDef     = schema.LinkDef
	ScalarType  = schema.ScalarType
	LinkVariant = schema.LinkVariant
)

// Scalar type constants, re-exported for schema authors.
const (
	ScalarBool   = schema.ScalarBool
	ScalarNumber = schema.ScalarNumber
	ScalarString = schema.ScalarString
	ScalarDate   = schema.ScalarDate
	ScalarArray  = schema.ScalarArray
)

// Link variant constants, re-exported for schema authors.
const (
	LinkSingle = schema.LinkSingle
	LinkArray  = schema.LinkArray
	LinkSet    = schema.LinkSet
)

// Re-exported mutation types (spec.md §4.2–§4.3).
type (
	MutableDoc  = mutable.Document
	Command     = mutable.Command
	CommandKind = mutable.Kind
	Position    = mutable.Position
	ElementSpec = mutable.ElementSpec
	MutableOption = mutable.Option
)

// Command kind constants.
const (
	KindInsert = mutable.KindInsert
	KindChange = mutable.KindChange
	KindMove   = mutable.KindMove
	KindDelete = mutable.KindDelete
)

// Re-exported walker types (spec.md §4.1).
type (
	VisitFunc     = walker.VisitFunc
	VisitOptions  = walker.Options
	TraversalOrder = walker.Order
)

const (
	BFS = walker.BFS
	DFS = walker.DFS
)

// Re-exported merge types (spec.md §4.6–§4.9, §6).
type (
	Conflicts        = treemerge.Conflicts
	ElementConflict  = treemerge.ElementConflict
	FieldConflict    = treemerge.FieldConflict
	PositionConflict = treemerge.PositionConflict
	MergeOption      = treemerge.Option
	ElementHooks     = treemerge.Hooks
)

// EqualFunc reports whether two array elements should be treated as the
// same element for diff/merge matching purposes.
type EqualFunc[T any] = lcsdiff.EqualFunc[T]

// WithIDGenerator overrides the identifier generator used when a merge
// clones a subtree to resolve a position conflict (spec.md §4.8.5).
func WithIDGenerator(g func() string) MergeOption {
	return treemerge.WithIDGenerator(generatorFunc(g))
}

type generatorFunc func() string

func (g generatorFunc) New() string { return g() }

// WithElementHooks overrides the merge hooks for a single node type
// (spec.md §6's elementsOverrides).
func WithElementHooks(nodeType string, h ElementHooks) MergeOption {
	return treemerge.WithElementHooks(nodeType, h)
}

// CreateNormalizedDocument constructs a new document with a single root
// node of sch's declared root type, its data seeded from rootData merged
// over the schema's field defaults (spec.md §6).
func CreateNormalizedDocument(sch *Schema, rootID string, rootData map[string]any) *Document {
	return docmodel.New(sch, rootID, rootData)
}

// MutableDocument wraps doc in a mutable copy-on-write overlay (spec.md
// §6, §4.2).
func MutableDocument(doc *Document, opts ...MutableOption) *MutableDoc {
	return mutable.New(doc, opts...)
}

// VisitDocument walks doc according to opts, calling visitor for every
// selected node (spec.md §4.1, §6).
func VisitDocument(doc *Document, visitor VisitFunc, opts VisitOptions) {
	walker.Visit(doc, visitor, opts)
}

// Diff returns the commands that transform base into later (spec.md §4.4,
// §6). A schema mismatch between base and later yields an empty list, not
// an error.
func Diff(base, later *Document) []Command {
	return treediff.Diff(base, later)
}

// DocReducer applies cmds to doc and returns the resulting snapshot,
// swallowing any fatal error and returning the last valid state reached
// before it (spec.md §6, §7). logger, if non-nil, receives a debug record
// for every swallowed error; a nil logger defaults to slog.Default().
func DocReducer(doc *Document, cmds []Command, logger *slog.Logger) *Document {
	log := telemetry.Logger(logger)
	m := mutable.New(doc)
	for _, cmd := range cmds {
		if err := m.Apply(cmd); err != nil {
			log.Debug("docReducer: swallowed command error", "kind", cmd.Kind.String(), "error", err)
			break
		}
	}
	return m.Snapshot()
}

// ThreeWayMerge merges mine and their, both derived from base, returning
// the merged snapshot and a conflicts map (spec.md §4.8, §6). logger, if
// non-nil, receives a debug record for every recorded conflict.
func ThreeWayMerge(base, mine, their *Document, logger *slog.Logger, opts ...MergeOption) (*Document, Conflicts, error) {
	merged, conflicts, err := treemerge.ThreeWayMerge(base, mine, their, opts...)
	if err != nil {
		return merged, conflicts, err
	}

	log := telemetry.Logger(logger)
	for nodeType, byID := range conflicts {
		for id := range byID {
			log.Debug("threeWayMerge: recorded conflict", "type", nodeType, "id", id)
		}
	}
	return merged, conflicts, nil
}

// DiffArray computes the operations that transform base into later under
// eq, plus one ElementChange per base element (spec.md §4.5, §6).
func DiffArray[T any](base, later []T, eq EqualFunc[T]) ([]lcsdiff.Op, []lcsdiff.ElementChange) {
	return lcsdiff.DiffArray(base, later, eq)
}

// ApplyArrayDiff replays ops against a fresh copy of base, producing the
// resulting sequence (spec.md §4.5, §6).
func ApplyArrayDiff[T any](base []T, ops []lcsdiff.Op) []T {
	return lcsdiff.ApplyArrayDiff(base, ops)
}

// ThreeWayMergeArray merges mine and their, both derived from base, under
// eq (spec.md §4.7, §6).
func ThreeWayMergeArray[T any](base, mine, their []T, eq EqualFunc[T]) (merged []T, conflict bool) {
	return arraymerge.ThreeWayMerge(base, mine, their, eq)
}
