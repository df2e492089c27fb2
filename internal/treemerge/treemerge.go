// Package treemerge implements the tree three-way merge (component H,
// spec.md §4.8): the orchestration engine that drives per-element data
// merge (§4.6), per-field child ordering merge (§4.7's diff3-style
// sequence construction), position-conflict subtree cloning (§4.8.5), and
// the final cleanup pass, producing a merged snapshot and a conflicts map.
package treemerge

import (
	"reflect"
	"sync"

	"github.com/mibar/hierdoc/internal/docerr"
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/idgen"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/set"
	"github.com/mibar/hierdoc/internal/treediff"
	"github.com/mibar/hierdoc/internal/walker"
)

// Ref is a document element reference, re-exported for callers building
// Hooks without importing docmodel directly.
type Ref = docmodel.ElementRef

// config collects merge-time options.
type config struct {
	overrides map[string]Hooks
	idGen     idgen.Generator
}

// Option configures ThreeWayMerge.
type Option func(*config)

// WithElementHooks overrides the default placement/comparison hooks for a
// single node type.
func WithElementHooks(nodeType string, h Hooks) Option {
	return func(c *config) { c.overrides[nodeType] = h }
}

// WithIDGenerator overrides the identifier generator used for cloned
// subtrees (spec.md §4.8.5).
func WithIDGenerator(g idgen.Generator) Option {
	return func(c *config) { c.idGen = g }
}

// process-wide cache of per-(document-type, node-type) hook dispatch
// tables (spec.md §5: "a single process-wide cache... pure memoization of
// options provided at merge time").
var hookCache = struct {
	mu sync.Mutex
	m  map[[2]string]Hooks
}{m: map[[2]string]Hooks{}}

func hooksFor(docType, nodeType string, overrides map[string]Hooks) Hooks {
	key := [2]string{docType, nodeType}

	hookCache.mu.Lock()
	defer hookCache.mu.Unlock()
	if h, ok := hookCache.m[key]; ok {
		return h
	}

	h := defaultHooks()
	if ov, ok := overrides[nodeType]; ok {
		if ov.AddElement != nil {
			h.AddElement = ov.AddElement
		}
		if ov.MoveToMergePosition != nil {
			h.MoveToMergePosition = ov.MoveToMergePosition
		}
		if ov.CompareSiblings != nil {
			h.CompareSiblings = ov.CompareSiblings
		}
		if ov.OnIncompatibleElementVersions != nil {
			h.OnIncompatibleElementVersions = ov.OnIncompatibleElementVersions
		}
		if ov.ArePositionsCompatible != nil {
			h.ArePositionsCompatible = ov.ArePositionsCompatible
		}
		if ov.MergeElementInfo != nil {
			h.MergeElementInfo = ov.MergeElementInfo
		}
		if ov.OnDeleteElement != nil {
			h.OnDeleteElement = ov.OnDeleteElement
		}
	}
	hookCache.m[key] = h
	return h
}

// ThreeWayMerge merges mine and their, both derived from base, into a new
// snapshot plus a conflicts map (spec.md §4.8). A schema mismatch between
// any pair of the three documents is not a fatal error (spec.md §7): mine
// is returned unchanged, with an empty conflicts map and a *SchemaMismatchError
// (wrapping docerr.ErrSchemaMismatch) a caller can inspect with errors.As,
// or simply ignore to keep the unchanged-mine behavior.
func ThreeWayMerge(base, mine, their *docmodel.Document, opts ...Option) (*docmodel.Document, Conflicts, error) {
	if !schema.Same(base.Schema, mine.Schema) || !schema.Same(base.Schema, their.Schema) {
		return mine, Conflicts{}, &docerr.SchemaMismatchError{Detail: "base, mine, and their do not all share a schema and root type"}
	}

	cfg := &config{overrides: map[string]Hooks{}, idGen: idgen.New()}
	for _, o := range opts {
		o(cfg)
	}

	mg := mutable.New(mine, mutable.WithIDGenerator(cfg.idGen))
	mineStates := computeStates(base, mine)
	theirStates := computeStates(base, their)
	conflicts := Conflicts{}
	forkedMineOnly := map[Ref]bool{}
	resolved := resolveRelocations(mg, base, mine, their, conflicts, cfg, forkedMineOnly)

	queue := []Ref{mg.GetRoot()}
	enqueued := set.New(mg.GetRoot())
	enqueue := func(r Ref) {
		if !enqueued.Has(r) {
			enqueued.Add(r)
			queue = append(queue, r)
		}
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		mergeNodeData(mg, base, mine, their, ref, conflicts, forkedMineOnly, cfg)

		node, ok := mg.Get(ref)
		if !ok {
			continue
		}
		nt, ok := base.Schema.NodeType(node.Type)
		if !ok {
			continue
		}

		for _, field := range nt.LinkFieldNames() {
			switch nt.Links[field].Variant {
			case schema.LinkArray:
				mergeOrderedChildren(mg, base, mine, their, mineStates, theirStates, conflicts, cfg, ref, field, forkedMineOnly, resolved, enqueue)
			case schema.LinkSingle:
				mergeOrderedChildren(mg, base, mine, their, mineStates, theirStates, conflicts, cfg, ref, field, forkedMineOnly, resolved, enqueue)
			case schema.LinkSet:
				mergeSetChildren(mg, base, mine, their, conflicts, cfg, ref, field, enqueue)
			}
		}
	}

	cleanup(mg, base, mine, their, mineStates, theirStates, cfg)

	return mg.Snapshot(), conflicts, nil
}

// computeStates builds the per-element merge state for one side: which
// elements it carries at all, and which sit on an edited path from base.
func computeStates(base, tree *docmodel.Document) sideStates {
	states := sideStates{}
	walker.Visit(tree, func(n *docmodel.Node) {
		ref := n.Ref()
		_, inBase := base.Get(ref)
		states[ref] = &elementState{isInBaseTree: inBase}
	}, walker.Options{Order: walker.BFS})

	for _, cmd := range treediff.Diff(base, tree) {
		switch cmd.Kind {
		case mutable.KindInsert:
			markEditedPath(states, tree, Ref{Type: cmd.Element.Type, ID: cmd.Element.ID})
		case mutable.KindChange, mutable.KindMove:
			markEditedPath(states, tree, cmd.Target)
		}
	}
	return states
}

func markEditedPath(states sideStates, tree *docmodel.Document, ref Ref) {
	for {
		st, ok := states[ref]
		if !ok {
			st = &elementState{}
			states[ref] = st
		}
		if st.isInEditedPath {
			return
		}
		st.isInEditedPath = true

		n, ok := tree.Get(ref)
		if !ok || n.Parent == nil {
			return
		}
		ref = n.Parent.Element
	}
}

// mergeNodeData merges a single element's data fields across base/mine/
// their via the type's MergeElementInfo hook (spec.md §4.6, default
// scalarmerge dispatch) and emits a Change if the result differs from
// Merged's current value. A ref in forkedMineOnly is the surviving half of
// a resolved position conflict (§4.8.3): its data merge is restricted to
// base+mine, since their's edits were diverted onto a cloned sibling.
func mergeNodeData(mg *mutable.Document, base, mine, their *docmodel.Document, ref Ref, conflicts Conflicts, forkedMineOnly map[Ref]bool, cfg *config) {
	merged, ok := mg.Get(ref)
	if !ok {
		return
	}
	baseNode, hasBase := base.Get(ref)
	mineNode, hasMine := mine.Get(ref)
	theirNode, hasTheir := their.Get(ref)
	if forkedMineOnly[ref] {
		hasTheir = false
	}

	nt, ok := base.Schema.NodeType(merged.Type)
	if !ok {
		return
	}

	baseData := map[string]any{}
	mineData := map[string]any{}
	theirData := map[string]any{}
	for field := range nt.Fields {
		if hasBase {
			baseData[field] = baseNode.Data[field]
		}
		if hasMine {
			mineData[field] = mineNode.Data[field]
		} else {
			mineData[field] = merged.Data[field]
		}
		if hasTheir {
			theirData[field] = theirNode.Data[field]
		} else {
			theirData[field] = mineData[field]
		}
	}

	h := hooksFor(base.Schema.Name, merged.Type, cfg.overrides)
	mergedData, fieldConflicts := h.MergeElementInfo(nt.Fields, baseData, mineData, theirData)

	if len(fieldConflicts) > 0 {
		e := conflicts.entry(ref.Type, ref.ID)
		if e.InfoConflicts == nil {
			e.InfoConflicts = map[string]FieldConflict{}
		}
		for field, fc := range fieldConflicts {
			e.InfoConflicts[field] = fc
		}
	}

	changes := map[string]any{}
	for field, val := range mergedData {
		if cur, ok := merged.Data[field]; !ok || !reflect.DeepEqual(cur, val) {
			changes[field] = val
		}
	}
	if len(changes) > 0 {
		_ = mg.Change(ref, changes)
	}
}

func cleanup(mg *mutable.Document, base, mine, their *docmodel.Document, mineStates, theirStates sideStates, cfg *config) {
	snap := mg.Snapshot()

	var stale []Ref
	walker.Visit(snap, func(n *docmodel.Node) {
		ref := n.Ref()
		if _, ok := base.Get(ref); !ok {
			// Never existed in base: either a genuinely new element (mine
			// or their added it) or a fresh clone minted by a position
			// conflict (spec.md §4.8.5). Cleanup only reclaims base
			// elements neither side kept, so this is never its business.
			return
		}
		if _, ok := mine.Get(ref); ok {
			return
		}
		if _, ok := their.Get(ref); ok {
			return
		}
		if st, ok := mineStates[ref]; ok && st.isInEditedPath {
			return
		}
		if st, ok := theirStates[ref]; ok && st.isInEditedPath {
			return
		}
		stale = append(stale, ref)
	}, walker.Options{Order: walker.DFS})

	for _, ref := range stale {
		h := hooksFor(base.Schema.Name, ref.Type, cfg.overrides)
		h.OnDeleteElement(ref)
		_ = mg.Delete(ref)
	}
}

func typeOf(base, mine, their *docmodel.Document, ref Ref) string {
	if n, ok := mine.Get(ref); ok {
		return n.Type
	}
	if n, ok := their.Get(ref); ok {
		return n.Type
	}
	if n, ok := base.Get(ref); ok {
		return n.Type
	}
	return ref.Type
}

func nodeFrom(mine, their *docmodel.Document, ref Ref) *docmodel.Node {
	if n, ok := mine.Get(ref); ok {
		return n
	}
	n, _ := their.Get(ref)
	return n
}
