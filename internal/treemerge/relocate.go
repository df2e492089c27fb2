package treemerge

import (
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
)

// parentFieldOf returns the (parent, field) ref sits under in doc, or ok =
// false if ref is absent from doc or is doc's own root.
func parentFieldOf(doc *docmodel.Document, ref Ref) (parent Ref, field string, ok bool) {
	n, exists := doc.Get(ref)
	if !exists || n.Parent == nil {
		return Ref{}, "", false
	}
	return n.Parent.Element, n.Parent.Field, true
}

// resolveRelocations finds every base element that both sides relocated
// away from its base parent, but to two DIFFERENT new parents (spec.md
// §4.8.3/§4.8.5's incompatible-position case). This can't be caught by the
// per-field ordering merge alone: the base parent's own merged children
// sequence simply agrees the element is gone, so neither new parent's
// ordering merge ever learns the other made a competing claim on it. This
// pass runs once, up front, to resolve those cases before the per-field
// passes place anything.
//
// It returns the set of refs it resolved, which the per-field passes must
// then leave untouched: the winning side's copy is in place (mg starts as
// a copy of mine, and when their wins the real node is moved to their's
// destination here), and the losing side's copy has
// been cloned fresh under its own destination, so reprocessing the
// original ref anywhere else would only undo the resolution.
func resolveRelocations(mg *mutable.Document, base, mine, their *docmodel.Document, conflicts Conflicts, cfg *config, forkedMineOnly map[Ref]bool) map[Ref]bool {
	resolved := map[Ref]bool{}

	for _, ref := range base.AllRefs() {
		if ref == base.Root {
			continue
		}

		baseParent, baseField, _ := parentFieldOf(base, ref)
		mineParent, mineField, mineOk := parentFieldOf(mine, ref)
		theirParent, theirField, theirOk := parentFieldOf(their, ref)
		if !mineOk || !theirOk {
			continue // one side deleted it outright; ordinary cleanup handles that.
		}

		if isSetField(base.Schema, baseParent, baseField) {
			continue // keyed sets resolve same-key collisions by identity, not position.
		}

		mineMoved := mineParent != baseParent || mineField != baseField
		theirMoved := theirParent != baseParent || theirField != baseField
		if !mineMoved || !theirMoved {
			continue // at most one side relocated it; the per-field pass handles that.
		}
		if mineParent == theirParent && mineField == theirField {
			continue // both sides agree on the new home.
		}

		h := hooksFor(base.Schema.Name, ref.Type, cfg.overrides)
		mineOwns := h.OnIncompatibleElementVersions(true, ref)

		e := conflicts.entry(ref.Type, ref.ID)
		if e.PositionConflicts == nil {
			e.PositionConflicts = &PositionConflict{Status: StatusOpen}
		}

		if mineOwns {
			forkedMineOnly[ref] = true
			if cloneRef, err := cloneSubtree(mg, their, base.Schema, ref, theirParent, mutable.Position{Field: theirField, Index: -1}, cfg.idGen); err == nil {
				e.PositionConflicts.ClonedElements = append(e.PositionConflicts.ClonedElements, cloneRef.ID)
			}
		} else {
			_ = mg.Move(ref, theirParent, mutable.Position{Field: theirField, Index: -1}, nil)
			if cloneRef, err := cloneSubtree(mg, mine, base.Schema, ref, mineParent, mutable.Position{Field: mineField, Index: -1}, cfg.idGen); err == nil {
				e.PositionConflicts.ClonedElements = append(e.PositionConflicts.ClonedElements, cloneRef.ID)
			}
		}

		resolved[ref] = true
	}

	return resolved
}

func isSetField(sch *schema.Schema, parent Ref, field string) bool {
	nt, ok := sch.NodeType(parent.Type)
	if !ok {
		return false
	}
	ld, ok := nt.Links[field]
	return ok && ld.Variant == schema.LinkSet
}
