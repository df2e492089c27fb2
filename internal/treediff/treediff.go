// Package treediff computes the command list that transforms a base
// snapshot into a later one (component G, spec.md §4.4): a breadth-first
// walk of later against a mutable overlay of base, followed by a
// depth-first cleanup pass that runs strictly after every rewrite has been
// appended to the log (spec.md §9's correction of the source's bug, where
// cleanup could run before a pending rewrite claimed a subtree).
package treediff

import (
	"reflect"

	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/walker"
)

// Diff returns the commands that, applied to base, produce a document
// equal to later in all fields and structure. base and later must share a
// schema and root identity.
func Diff(base, later *docmodel.Document, opts ...mutable.Option) []mutable.Command {
	if !schema.Same(base.Schema, later.Schema) {
		return nil
	}

	m := mutable.New(base, opts...)

	walker.Visit(later, func(n *docmodel.Node) {
		visitNode(m, base, later, n)
	}, walker.Options{Order: walker.BFS})

	cleanup(m, later)

	return m.Log()
}

func visitNode(m *mutable.Document, base, later *docmodel.Document, n *docmodel.Node) {
	ref := n.Ref()

	if cur, ok := m.Get(ref); ok {
		if changes := dataDelta(cur.Data, n.Data); len(changes) > 0 {
			_ = m.Change(ref, changes)
		}
	}

	nt, ok := base.Schema.NodeType(n.Type)
	if !ok {
		return
	}
	for _, field := range nt.LinkFieldNames() {
		switch nt.Links[field].Variant {
		case schema.LinkSingle:
			reconcileSingle(m, base, later, ref, field)
		case schema.LinkArray:
			reconcileArray(m, base, later, ref, field)
		case schema.LinkSet:
			reconcileSet(m, base, later, ref, field)
		}
	}
}

// reconcileSingle implements the four single-link cases of spec.md §4.4.
func reconcileSingle(m *mutable.Document, base, later *docmodel.Document, parent docmodel.ElementRef, field string) {
	parentNode, ok := m.Get(parent)
	if !ok {
		return
	}
	curRef := parentNode.Children[field].Single

	laterParent, ok := later.Get(parent)
	if !ok {
		return
	}
	wantRef := laterParent.Children[field].Single

	if curRef.IsZero() && wantRef.IsZero() {
		return
	}
	if !curRef.IsZero() && wantRef.IsZero() {
		if _, stillExists := later.Get(curRef); stillExists {
			_ = m.Move(curRef, m.GetRoot(), mutable.Position{Field: schema.OrphansField, Index: 0}, nil)
		} else {
			_ = m.Delete(curRef)
		}
		return
	}
	if curRef == wantRef {
		return
	}
	placeLinkTarget(m, base, later, parent, mutable.Position{Field: field}, wantRef)
}

// reconcileArray implements the array-link case of spec.md §4.4.
func reconcileArray(m *mutable.Document, base, later *docmodel.Document, parent docmodel.ElementRef, field string) {
	laterParent, ok := later.Get(parent)
	if !ok {
		return
	}
	want := laterParent.Children[field].Array

	for i, target := range want {
		parentNode, ok := m.Get(parent)
		if !ok {
			return
		}
		cur := parentNode.Children[field].Array
		if i < len(cur) && cur[i] == target {
			continue
		}
		placeLinkTarget(m, base, later, parent, mutable.Position{Field: field, Index: i}, target)
	}
}

// reconcileSet implements the keyed-set case of spec.md §4.4. Removals are
// left to the cleanup pass, as the spec directs.
func reconcileSet(m *mutable.Document, base, later *docmodel.Document, parent docmodel.ElementRef, field string) {
	laterParent, ok := later.Get(parent)
	if !ok {
		return
	}
	set := laterParent.Children[field].Set
	if set == nil {
		return
	}

	for _, key := range set.Keys() {
		target, _ := set.Get(key)

		parentNode, ok := m.Get(parent)
		if !ok {
			return
		}
		if curRef, ok := parentNode.Children[field].Set.Get(key); ok && curRef == target {
			continue
		}
		placeLinkTarget(m, base, later, parent, mutable.Position{Field: field, Key: key}, target)
	}
}

// placeLinkTarget moves target into pos under parent if it already exists
// somewhere in m, or inserts a shallow (data-only) copy of it otherwise,
// carrying any pending data delta along with a Move.
func placeLinkTarget(m *mutable.Document, base, later *docmodel.Document, parent docmodel.ElementRef, pos mutable.Position, target docmodel.ElementRef) {
	laterNode, ok := later.Get(target)
	if !ok {
		return
	}

	if curNode, exists := m.Get(target); exists {
		changes := dataDelta(curNode.Data, laterNode.Data)
		if len(changes) == 0 {
			changes = nil
		}
		_ = m.Move(target, parent, pos, changes)
		return
	}

	_, _ = m.Insert(parent, pos, mutable.ElementSpec{Type: laterNode.Type, ID: target.ID, Data: laterNode.Data})
}

// cleanup depth-first traverses m and deletes every node absent from
// later. The walk runs over a snapshot taken after every rewrite from the
// main pass has already been appended, so a subtree pending its own
// rewrite is never deleted out from under it.
func cleanup(m *mutable.Document, later *docmodel.Document) {
	snap := m.Snapshot()

	var stale []docmodel.ElementRef
	walker.Visit(snap, func(n *docmodel.Node) {
		ref := n.Ref()
		if _, ok := later.Get(ref); !ok {
			stale = append(stale, ref)
		}
	}, walker.Options{Order: walker.DFS})

	for _, ref := range stale {
		_ = m.Delete(ref)
	}
}

func dataDelta(cur, later map[string]any) map[string]any {
	changes := map[string]any{}
	for k, v := range later {
		if cv, ok := cur[k]; !ok || !reflect.DeepEqual(cv, v) {
			changes[k] = v
		}
	}
	return changes
}
