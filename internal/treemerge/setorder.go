package treemerge

import (
	"sort"

	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/mutable"
)

// mergeSetChildren merges a keyed-set link field by key rather than
// position (spec.md §4.8.2's "set = unordered, merge by key"). Unlike
// array/single links, a keyed slot has no index to conflict over, so there
// is no clone-on-incompatible-position step here: a same-key collision
// between mine and their is broken by the sibling comparison hook
// (spec.md §4.9).
func mergeSetChildren(
	mg *mutable.Document, base, mine, their *docmodel.Document,
	conflicts Conflicts, cfg *config, parent Ref, field string, enqueue func(Ref),
) {
	baseSet := setFor(base, parent, field)
	mineSet := setFor(mine, parent, field)
	theirSet := setFor(their, parent, field)

	keys := map[string]bool{}
	for k := range mineSet {
		keys[k] = true
	}
	for k := range theirSet {
		keys[k] = true
	}
	for k := range baseSet {
		keys[k] = true
	}

	sortedKeys := make([]string, 0, len(keys))
	for k := range keys {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Strings(sortedKeys)

	for _, key := range sortedKeys {
		mineRef, mineOk := mineSet[key]
		theirRef, theirOk := theirSet[key]
		baseRef, baseOk := baseSet[key]

		var target Ref
		switch {
		case mineOk && theirOk && mineRef == theirRef:
			target = mineRef
		case mineOk && !theirOk:
			target = mineRef
		case theirOk && !mineOk:
			target = theirRef
		case mineOk && theirOk:
			h := hooksFor(base.Schema.Name, typeOf(base, mine, their, mineRef), cfg.overrides)
			if h.CompareSiblings(mineRef == baseRef && baseOk, theirRef == baseRef && baseOk, mineRef, theirRef) {
				target = mineRef
			} else {
				target = theirRef
			}
			e := conflicts.entry(parent.Type, parent.ID)
			if e.PositionConflicts == nil {
				e.PositionConflicts = &PositionConflict{Status: StatusOpen}
			}
		default:
			continue
		}

		pos := mutable.Position{Field: field, Key: key}
		h := hooksFor(base.Schema.Name, typeOf(base, mine, their, target), cfg.overrides)

		parentNode, ok := mg.Get(parent)
		if !ok {
			return
		}
		lv := parentNode.Children[field]
		if cur, ok := lv.Set.Get(key); ok && cur == target {
			enqueue(target)
			continue
		}

		if _, exists := mg.Get(target); !exists {
			src := nodeFrom(mine, their, target)
			_, _ = h.AddElement(mg, parent, pos, mutable.ElementSpec{Type: src.Type, ID: target.ID, Data: src.Data})
		} else {
			_ = h.MoveToMergePosition(mg, target, parent, pos)
		}
		enqueue(target)
	}
}

func setFor(doc *docmodel.Document, parent Ref, field string) map[string]Ref {
	n, ok := doc.Get(parent)
	if !ok {
		return nil
	}
	lv := n.Children[field]
	if lv.Set == nil {
		return nil
	}
	out := make(map[string]Ref, lv.Set.Len())
	for _, k := range lv.Set.Keys() {
		ref, _ := lv.Set.Get(k)
		out[k] = ref
	}
	return out
}
