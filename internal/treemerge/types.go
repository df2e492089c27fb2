package treemerge

import (
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/scalarmerge"
	"github.com/mibar/hierdoc/internal/schema"
)

// Status is a conflict's resolution state. Every conflict this package
// produces is left open; nothing in the merge engine closes one.
type Status string

// StatusOpen is the only status treemerge ever assigns.
const StatusOpen Status = "open"

// FieldConflict records one scalar field that could not be resolved
// without a pick (spec.md §4.6's conflict shape).
type FieldConflict struct {
	Base        any
	Mine, Their any
	Merged      any
	Status      Status
}

// PositionConflict records a structural placement conflict: the two sides
// wanted the element under different parents, so the losing side's subtree
// was cloned under a fresh identifier (spec.md §4.8.5).
type PositionConflict struct {
	ClonedElements []string
	Status         Status
}

// ElementConflict is the conflict record for a single element: its field
// conflicts and, if applicable, its position conflict.
type ElementConflict struct {
	InfoConflicts     map[string]FieldConflict
	PositionConflicts *PositionConflict
}

// Conflicts is the merge's conflicts map, keyed by node type then by
// identifier (spec.md §4.8.6). Absence of an entry means no conflict.
type Conflicts map[string]map[string]*ElementConflict

func (c Conflicts) entry(typ, id string) *ElementConflict {
	byID, ok := c[typ]
	if !ok {
		byID = map[string]*ElementConflict{}
		c[typ] = byID
	}
	e, ok := byID[id]
	if !ok {
		e = &ElementConflict{}
		byID[id] = e
	}
	return e
}

// elementState is the per-element merge state of spec.md §4.8.1, one map
// per side (mine, their).
type elementState struct {
	isInBaseTree   bool
	isInEditedPath bool

	// positionProcessed guards against reprocessing a base element that
	// shows up in more than one parent's merged child sequence in the same
	// pass (e.g. a position conflict's loser, encountered again after its
	// clone already absorbed the rebase).
	positionProcessed bool
}

type sideStates map[Ref]*elementState

// AddElementHook installs a new element at pos under parent, returning its
// reference. The default simply calls Document.Insert.
type AddElementHook func(m *mutable.Document, parent Ref, pos mutable.Position, elem mutable.ElementSpec) (Ref, error)

// MoveToMergePositionHook relocates an existing element to pos under
// parent. The default simply calls Document.Move.
type MoveToMergePositionHook func(m *mutable.Document, target Ref, parent Ref, pos mutable.Position) error

// SiblingCompareHook orders two children that must sit next to each other
// in a conflict region (spec.md §4.9). It returns true if a should sort
// before b. The default prefers whichever is the base element, then
// compares identifiers.
type SiblingCompareHook func(aIsBase, bIsBase bool, a, b Ref) bool

// IncompatibleVersionsHook decides which side keeps the real node when a
// base element's position diverged incompatibly across mine and their
// (spec.md §4.8.5). mineHeldSlot reports whether mine already occupies
// this (parent, field) slot; the hook returns true if mine should keep the
// real node (the other side is cloned), false if their should.
type IncompatibleVersionsHook func(mineHeldSlot bool, child Ref) bool

// PositionsCompatibleHook decides whether a base element that both sides
// edited still sits at compatible positions (spec.md §4.8.3). The default
// requires the element to still appear in both sides' sequence for this
// same field.
type PositionsCompatibleHook func(inMineField, inTheirField bool) bool

// MergeElementInfoHook merges one element's data fields across base/mine/
// their (spec.md §4.6). The default dispatches each field to scalarmerge
// by its declared schema.ScalarType.
type MergeElementInfoHook func(fields map[string]schema.FieldDef, base, mine, their map[string]any) (map[string]any, map[string]FieldConflict)

// DeleteElementHook is invoked for every element the cleanup pass removes
// because neither side kept it (spec.md §4.8.4). The default is a no-op;
// callers use it to release external resources tied to a node identity.
type DeleteElementHook func(ref Ref)

// Hooks is the per-(document-type, node-type) dispatch table of spec.md
// §6's seven merge hooks: addElement, moveToMergePosition, cmpSiblings,
// onIncompatibleElementVersions, arePositionsCompatible, mergeElementInfo,
// onDeleteElement.
type Hooks struct {
	AddElement                 AddElementHook
	MoveToMergePosition         MoveToMergePositionHook
	CompareSiblings             SiblingCompareHook
	OnIncompatibleElementVersions IncompatibleVersionsHook
	ArePositionsCompatible      PositionsCompatibleHook
	MergeElementInfo            MergeElementInfoHook
	OnDeleteElement              DeleteElementHook
}

func defaultHooks() Hooks {
	return Hooks{
		AddElement: func(m *mutable.Document, parent Ref, pos mutable.Position, elem mutable.ElementSpec) (Ref, error) {
			return m.Insert(parent, pos, elem)
		},
		MoveToMergePosition: func(m *mutable.Document, target Ref, parent Ref, pos mutable.Position) error {
			return m.Move(target, parent, pos, nil)
		},
		CompareSiblings: func(aIsBase, bIsBase bool, a, b Ref) bool {
			if aIsBase != bIsBase {
				return aIsBase
			}
			return a.ID < b.ID
		},
		OnIncompatibleElementVersions: func(mineHeldSlot bool, child Ref) bool {
			return mineHeldSlot
		},
		ArePositionsCompatible: func(inMineField, inTheirField bool) bool {
			return inMineField && inTheirField
		},
		MergeElementInfo: defaultMergeElementInfo,
		OnDeleteElement:  func(ref Ref) {},
	}
}

// defaultMergeElementInfo merges every declared field independently via
// scalarmerge, the tree merge engine's baseline behavior before any
// per-type override.
func defaultMergeElementInfo(fields map[string]schema.FieldDef, base, mine, their map[string]any) (map[string]any, map[string]FieldConflict) {
	merged := make(map[string]any, len(fields))
	var conflicts map[string]FieldConflict

	for field, fd := range fields {
		val, conflict := scalarmerge.Merge(fd.Type, base[field], mine[field], their[field])
		merged[field] = val
		if conflict != nil {
			if conflicts == nil {
				conflicts = map[string]FieldConflict{}
			}
			conflicts[field] = FieldConflict{
				Base: conflict.Base, Mine: conflict.Mine, Their: conflict.Their,
				Merged: conflict.Merged, Status: StatusOpen,
			}
		}
	}
	return merged, conflicts
}
