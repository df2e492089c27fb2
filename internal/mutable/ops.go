package mutable

import (
	"reflect"

	"github.com/mibar/hierdoc/internal/docerr"
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/schema"
)

// installAt inserts ref into n's link field named pos.Field at pos,
// mutating n in place. n must already be a private (cloned) copy.
func installAt(n *docmodel.Node, pos Position, ref docmodel.ElementRef) error {
	lv, ok := n.Children[pos.Field]
	if !ok {
		return &docerr.ReferenceError{Detail: "no such link field: " + pos.Field}
	}

	switch lv.Variant {
	case schema.LinkSingle:
		lv.Single = ref
	case schema.LinkArray:
		idx := pos.Index
		if idx == -1 {
			idx = len(lv.Array)
		}
		if idx < 0 || idx > len(lv.Array) {
			return &docerr.IndexError{Field: pos.Field, Index: pos.Index, Len: len(lv.Array)}
		}
		arr := make([]docmodel.ElementRef, 0, len(lv.Array)+1)
		arr = append(arr, lv.Array[:idx]...)
		arr = append(arr, ref)
		arr = append(arr, lv.Array[idx:]...)
		lv.Array = arr
	case schema.LinkSet:
		lv.Set.Set(pos.Key, ref)
	default:
		return &docerr.LinkShapeError{Field: pos.Field, Want: "single/array/set", Got: "unknown"}
	}
	n.Children[pos.Field] = lv
	return nil
}

// removeFrom removes ref from n's link field named field, mutating n in
// place.
func removeFrom(n *docmodel.Node, field string, ref docmodel.ElementRef) error {
	lv, ok := n.Children[field]
	if !ok {
		return &docerr.ReferenceError{Detail: "no such link field: " + field}
	}

	switch lv.Variant {
	case schema.LinkSingle:
		if lv.Single == ref {
			lv.Single = docmodel.ElementRef{}
		}
	case schema.LinkArray:
		out := make([]docmodel.ElementRef, 0, len(lv.Array))
		for _, r := range lv.Array {
			if r == ref {
				continue
			}
			out = append(out, r)
		}
		lv.Array = out
	case schema.LinkSet:
		if key, ok := lv.Set.KeyOf(ref); ok {
			lv.Set.Delete(key)
		}
	}
	n.Children[field] = lv
	return nil
}

func mergeData(base map[string]any, changes map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(changes))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range changes {
		out[k] = v
	}
	return out
}

// Insert creates a node of elem.Type under parentTarget's pos link field.
// If elem.ID is empty, a fresh identifier is generated.
func (m *Document) Insert(parentTarget any, pos Position, elem ElementSpec) (docmodel.ElementRef, error) {
	parentRef, err := ResolveTarget(m, parentTarget)
	if err != nil {
		return docmodel.ElementRef{}, err
	}
	parent, ok := m.Get(parentRef)
	if !ok {
		return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: "insert: parent " + parentRef.String() + " not found"}
	}

	id := elem.ID
	if id == "" {
		id = m.idGen.New()
	}

	nt, ok := m.schema.NodeType(elem.Type)
	if !ok {
		return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: "insert: unknown node type " + elem.Type}
	}

	data := mergeData(nt.DefaultData(), elem.Data)
	children := emptyChildren(m, elem.Type)
	ref := docmodel.ElementRef{Type: elem.Type, ID: id}

	node := &docmodel.Node{
		Type:     elem.Type,
		ID:       id,
		Data:     data,
		Children: children,
		Parent:   &docmodel.ParentRef{Element: parentRef, Field: pos.Field},
	}

	parentClone := parent.Clone()
	if err := installAt(parentClone, pos, ref); err != nil {
		return docmodel.ElementRef{}, err
	}

	m.put(node)
	m.put(parentClone)

	m.emit(Command{
		Kind:     KindInsert,
		Parent:   parentRef,
		Position: pos,
		Element:  ElementSpec{Type: elem.Type, ID: id, Data: elem.Data},
	})

	return ref, nil
}

// Change merges changes into target's data record. It is a no-op (no
// command emitted) if the merge produces the same record.
func (m *Document) Change(target any, changes map[string]any) error {
	ref, err := ResolveTarget(m, target)
	if err != nil {
		return err
	}
	n, ok := m.Get(ref)
	if !ok {
		return &docerr.ReferenceError{Detail: "change: " + ref.String() + " not found"}
	}

	merged := mergeData(n.Data, changes)
	if reflect.DeepEqual(merged, n.Data) {
		return nil
	}

	clone := n.Clone()
	clone.Data = merged
	m.put(clone)

	m.emit(Command{Kind: KindChange, Target: ref, Changes: changes})
	return nil
}

// Move relocates target to a new parent/position, optionally merging
// changes into its data in the same step.
func (m *Document) Move(target any, toParentTarget any, toPos Position, changes map[string]any) error {
	ref, err := ResolveTarget(m, target)
	if err != nil {
		return err
	}
	node, ok := m.Get(ref)
	if !ok {
		return &docerr.ReferenceError{Detail: "move: " + ref.String() + " not found"}
	}
	toParentRef, err := ResolveTarget(m, toParentTarget)
	if err != nil {
		return err
	}
	toParent, ok := m.Get(toParentRef)
	if !ok {
		return &docerr.ReferenceError{Detail: "move: target parent " + toParentRef.String() + " not found"}
	}

	if node.Parent != nil {
		fromParent, ok := m.Get(node.Parent.Element)
		if !ok {
			return &docerr.ReferenceError{Detail: "move: source parent " + node.Parent.Element.String() + " not found"}
		}
		fromClone := fromParent.Clone()
		if err := removeFrom(fromClone, node.Parent.Field, ref); err != nil {
			return err
		}
		m.put(fromClone)
		// Re-fetch toParent in case it was the same node as fromParent: the
		// removal above must be visible before we install into it.
		toParent, _ = m.Get(toParentRef)
	}

	toParentClone := toParent.Clone()
	if err := installAt(toParentClone, toPos, ref); err != nil {
		return err
	}
	m.put(toParentClone)

	nodeClone := node.Clone()
	nodeClone.Parent = &docmodel.ParentRef{Element: toParentRef, Field: toPos.Field}
	if changes != nil {
		nodeClone.Data = mergeData(nodeClone.Data, changes)
	}
	m.put(nodeClone)

	m.emit(Command{
		Kind:       KindMove,
		Target:     ref,
		ToParent:   toParentRef,
		ToPosition: toPos,
		Changes:    changes,
	})
	return nil
}

// Delete removes target's reference from its parent, then erases its
// entire subtree. Silent no-op if target does not exist.
func (m *Document) Delete(target any) error {
	ref, err := ResolveTarget(m, target)
	if err != nil {
		return err
	}
	node, ok := m.Get(ref)
	if !ok {
		return nil
	}
	if ref == m.root {
		return &docerr.InvariantError{Detail: "cannot delete the root node"}
	}

	if node.Parent != nil {
		parent, ok := m.Get(node.Parent.Element)
		if ok {
			parentClone := parent.Clone()
			if err := removeFrom(parentClone, node.Parent.Field, ref); err == nil {
				m.put(parentClone)
			}
		}
	}

	m.eraseSubtree(ref)

	m.emit(Command{Kind: KindDelete, Target: ref})
	return nil
}

// eraseSubtree walks depth-first and erases every node from the type maps,
// without recording per-node commands (Delete records exactly one command
// for the whole subtree).
func (m *Document) eraseSubtree(ref docmodel.ElementRef) {
	n, ok := m.Get(ref)
	if !ok {
		return
	}
	for field, lv := range n.Children {
		if field == schema.OrphansField {
			continue
		}
		for _, child := range lv.Refs() {
			m.eraseSubtree(child)
		}
	}
	m.erase(ref)
}

// Apply dispatches a single command to the corresponding operation.
func (m *Document) Apply(cmd Command) error {
	switch cmd.Kind {
	case KindInsert:
		_, err := m.Insert(cmd.Parent, cmd.Position, cmd.Element)
		return err
	case KindChange:
		return m.Change(cmd.Target, cmd.Changes)
	case KindMove:
		return m.Move(cmd.Target, cmd.ToParent, cmd.ToPosition, cmd.Changes)
	case KindDelete:
		return m.Delete(cmd.Target)
	default:
		return &docerr.CommandError{Kind: cmd.Kind.String()}
	}
}

// ApplyAll dispatches a sequence of commands in order, stopping at the
// first error.
func (m *Document) ApplyAll(cmds []Command) error {
	for _, cmd := range cmds {
		if err := m.Apply(cmd); err != nil {
			return err
		}
	}
	return nil
}
