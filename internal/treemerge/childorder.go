package treemerge

import (
	"github.com/mibar/hierdoc/internal/arraymerge"
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/idgen"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/set"
)

func eqRef(a, b Ref) bool { return a == b }

// seqFor reads a link field as a flat sequence, so single links (length 0
// or 1) and array links share the same diff3-style merge machinery (spec.md
// §4.8.2: "single = length-1 array").
func seqFor(doc *docmodel.Document, parent Ref, field string) []Ref {
	n, ok := doc.Get(parent)
	if !ok {
		return nil
	}
	return n.Children[field].Refs()
}

func posFor(variant schema.LinkVariant, field string, index int) mutable.Position {
	if variant == schema.LinkSingle {
		return mutable.Position{Field: field}
	}
	return mutable.Position{Field: field, Index: index}
}

func toSet(refs []Ref) set.Set[Ref] {
	return set.New(refs...)
}

// mergeOrderedChildren runs the child ordering merge (spec.md §4.8.3) for
// one array or single link field. It computes the merged child sequence
// via the three-way array merge (component F, reused as the "diff3-style
// region construction" the spec calls for), then places each child: moving
// elements already in Merged, inserting shallow copies of new elements, and
// cloning subtrees on a position conflict (§4.8.5).
func mergeOrderedChildren(
	mg *mutable.Document, base, mine, their *docmodel.Document,
	mineStates, theirStates sideStates, conflicts Conflicts, cfg *config,
	parent Ref, field string, forkedMineOnly map[Ref]bool, resolved map[Ref]bool, enqueue func(Ref),
) {
	nt, _ := base.Schema.NodeType(parent.Type)
	ld := nt.Links[field]

	baseSeq := seqFor(base, parent, field)
	mineSeq := seqFor(mine, parent, field)
	theirSeq := seqFor(their, parent, field)

	mergedOrder, _ := arraymerge.ThreeWayMerge(baseSeq, mineSeq, theirSeq, eqRef)

	inBase := toSet(baseSeq)
	inMine := toSet(mineSeq)
	inTheir := toSet(theirSeq)

	for i, child := range mergedOrder {
		pos := posFor(ld.Variant, field, i)
		h := hooksFor(base.Schema.Name, typeOf(base, mine, their, child), cfg.overrides)

		parentNode, ok := mg.Get(parent)
		if !ok {
			return
		}
		curRefs := parentNode.Children[field].Refs()
		alreadyHere := i < len(curRefs) && curRefs[i] == child

		_, mineHasAnywhere := mine.Get(child)
		_, theirHasAnywhere := their.Get(child)

		switch {
		case inBase.Has(child):
			placeBaseChild(mg, base, mine, their, mineStates, theirStates, conflicts,
				parent, field, pos, child, inMine.Has(child), inTheir.Has(child),
				mineHasAnywhere, theirHasAnywhere, alreadyHere, h, cfg, forkedMineOnly)
			enqueue(child)

		case resolved[child]:
			// Already placed by resolveRelocations: both sides moved this
			// base element to different new parents, and the conflict was
			// resolved before this pass started. Touching it again here
			// would undo that resolution.
			enqueue(child)

		case mineHasAnywhere || theirHasAnywhere:
			if _, exists := mg.Get(child); !exists {
				src := nodeFrom(mine, their, child)
				_, _ = h.AddElement(mg, parent, pos, mutable.ElementSpec{Type: src.Type, ID: child.ID, Data: src.Data})
			} else if !alreadyHere {
				_ = h.MoveToMergePosition(mg, child, parent, pos)
			}
			enqueue(child)
		}
	}
}

// placeBaseChild handles a child that existed in base: spec.md §4.8.3's
// first four bullets.
func placeBaseChild(
	mg *mutable.Document, base, mine, their *docmodel.Document,
	mineStates, theirStates sideStates, conflicts Conflicts,
	parent Ref, field string, pos mutable.Position, child Ref,
	inMineField, inTheirField, mineHasAnywhere, theirHasAnywhere, alreadyHere bool,
	h Hooks, cfg *config, forkedMineOnly map[Ref]bool,
) {
	if wasProcessed(mineStates, child) || wasProcessed(theirStates, child) {
		return
	}

	if !mineHasAnywhere || !theirHasAnywhere {
		// One side deleted it outright; it survived the array merge only
		// because the other side left it untouched. Just place it.
		if !alreadyHere {
			_ = h.MoveToMergePosition(mg, child, parent, pos)
		}
		markProcessed(mineStates, child)
		markProcessed(theirStates, child)
		return
	}

	mineEdited := stateEdited(mineStates, child)
	theirEdited := stateEdited(theirStates, child)

	switch {
	case mineEdited && theirEdited:
		if h.ArePositionsCompatible(inMineField, inTheirField) {
			if !alreadyHere {
				_ = h.MoveToMergePosition(mg, child, parent, pos)
			}
			markProcessed(mineStates, child)
			markProcessed(theirStates, child)
			return
		}
		mineOwns := h.OnIncompatibleElementVersions(inMineField, child)
		resolveIncompatible(mg, base, their, conflicts, cfg, parent, pos, child, mineOwns, forkedMineOnly)
		markProcessed(mineStates, child)
		markProcessed(theirStates, child)

	case mineEdited || theirEdited:
		if !alreadyHere {
			_ = h.MoveToMergePosition(mg, child, parent, pos)
		}
		markProcessed(mineStates, child)
		markProcessed(theirStates, child)

	default:
		if !alreadyHere {
			_ = h.MoveToMergePosition(mg, child, parent, pos)
		}
	}
}

func stateEdited(states sideStates, ref Ref) bool {
	st, ok := states[ref]
	return ok && st.isInEditedPath
}

func markProcessed(states sideStates, ref Ref) {
	if st, ok := states[ref]; ok {
		st.positionProcessed = true
	}
}

func wasProcessed(states sideStates, ref Ref) bool {
	st, ok := states[ref]
	return ok && st.positionProcessed
}

// resolveIncompatible handles the case where base element child is edited
// on both sides but placed under different parents (spec.md §4.8.3's
// "incompatible" branch). The side that already owns this slot (mineOwns)
// keeps the real node, restricted to a base+mine data merge; the other
// side's version is cloned under a fresh identifier and inserted here
// instead (spec.md §4.8.5).
func resolveIncompatible(
	mg *mutable.Document, base, their *docmodel.Document, conflicts Conflicts,
	cfg *config, parent Ref, pos mutable.Position, child Ref, mineOwns bool,
	forkedMineOnly map[Ref]bool,
) {
	e := conflicts.entry(child.Type, child.ID)
	if e.PositionConflicts == nil {
		e.PositionConflicts = &PositionConflict{Status: StatusOpen}
	}

	if mineOwns {
		forkedMineOnly[child] = true
		return
	}

	cloneRef, err := cloneSubtree(mg, their, base.Schema, child, parent, pos, cfg.idGen)
	if err != nil {
		return
	}
	e.PositionConflicts.ClonedElements = append(e.PositionConflicts.ClonedElements, cloneRef.ID)
}

// cloneSubtree recursively copies src's subtree rooted at srcRef into mg
// under parent at pos, generating a fresh identifier for every node so the
// clone has no identity collision with the original (spec.md §4.8.5).
func cloneSubtree(mg *mutable.Document, src *docmodel.Document, sch *schema.Schema, srcRef Ref, parent Ref, pos mutable.Position, idGen idgen.Generator) (Ref, error) {
	n, ok := src.Get(srcRef)
	if !ok {
		return Ref{}, nil
	}

	newRef, err := mg.Insert(parent, pos, mutable.ElementSpec{Type: n.Type, ID: idGen.New(), Data: n.Data})
	if err != nil {
		return Ref{}, err
	}

	nt, _ := sch.NodeType(n.Type)
	for _, field := range nt.LinkFieldNames() {
		lv := n.Children[field]
		switch nt.Links[field].Variant {
		case schema.LinkSingle:
			if !lv.Single.IsZero() {
				if _, err := cloneSubtree(mg, src, sch, lv.Single, newRef, mutable.Position{Field: field}, idGen); err != nil {
					return Ref{}, err
				}
			}
		case schema.LinkArray:
			for i, c := range lv.Array {
				if _, err := cloneSubtree(mg, src, sch, c, newRef, mutable.Position{Field: field, Index: i}, idGen); err != nil {
					return Ref{}, err
				}
			}
		case schema.LinkSet:
			if lv.Set != nil {
				for _, key := range lv.Set.Keys() {
					c, _ := lv.Set.Get(key)
					if _, err := cloneSubtree(mg, src, sch, c, newRef, mutable.Position{Field: field, Key: key}, idGen); err != nil {
						return Ref{}, err
					}
				}
			}
		}
	}
	return newRef, nil
}
