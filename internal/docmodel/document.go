package docmodel

import (
	"fmt"

	"github.com/mibar/hierdoc/internal/docerr"
	"github.com/mibar/hierdoc/internal/schema"
)

// Document is an immutable normalized snapshot: a schema reference, a root
// element reference, and for each node type a mapping from identifier to
// node.
type Document struct {
	Schema *schema.Schema
	Root   ElementRef
	Types  map[string]map[string]*Node
}

// New creates an empty document with a single root node populated from the
// schema's default data, merged with rootData.
func New(sch *schema.Schema, rootID string, rootData map[string]any) *Document {
	rootType, ok := sch.NodeType(sch.RootType)
	if !ok {
		panic(fmt.Sprintf("schema %q declares unknown root type %q", sch.Name, sch.RootType))
	}

	data := rootType.DefaultData()
	for k, v := range rootData {
		data[k] = v
	}

	children := make(map[string]LinkValue, len(rootType.Links))
	for field, ld := range rootType.Links {
		children[field] = EmptyLinkValue(ld.Variant)
	}
	children[schema.OrphansField] = EmptyLinkValue(schema.LinkArray)

	root := &Node{Type: sch.RootType, ID: rootID, Data: data, Children: children}

	doc := &Document{
		Schema: sch,
		Root:   root.Ref(),
		Types:  map[string]map[string]*Node{sch.RootType: {rootID: root}},
	}
	return doc
}

// GetRoot returns the root element reference, satisfying the mutable
// package's path-resolution Source interface.
func (d *Document) GetRoot() ElementRef { return d.Root }

// Get looks up a node by reference.
func (d *Document) Get(ref ElementRef) (*Node, bool) {
	m, ok := d.Types[ref.Type]
	if !ok {
		return nil, false
	}
	n, ok := m[ref.ID]
	return n, ok
}

// MustGet looks up a node by reference, panicking if absent. Used internally
// where the caller has already established the reference is valid.
func (d *Document) MustGet(ref ElementRef) *Node {
	n, ok := d.Get(ref)
	if !ok {
		panic(fmt.Sprintf("docmodel: reference %s not found", ref))
	}
	return n
}

// RootNode returns the root node.
func (d *Document) RootNode() *Node { return d.MustGet(d.Root) }

// AllRefs returns every element reference present in the document, in no
// particular order.
func (d *Document) AllRefs() []ElementRef {
	var out []ElementRef
	for typ, m := range d.Types {
		for id := range m {
			out = append(out, ElementRef{Type: typ, ID: id})
		}
	}
	return out
}

// Validate checks the §3.4 invariants over the full document. It is not
// called on every mutation (that would be O(n) per edit); callers exercise
// it in tests and at trust boundaries.
func (d *Document) Validate() error {
	if _, ok := d.Get(d.Root); !ok {
		return &docerr.InvariantError{Detail: fmt.Sprintf("root reference %s does not resolve", d.Root)}
	}

	reachable := map[ElementRef]bool{}
	var walk func(ref ElementRef) error
	walk = func(ref ElementRef) error {
		if reachable[ref] {
			return nil
		}
		reachable[ref] = true

		n, ok := d.Get(ref)
		if !ok {
			return &docerr.InvariantError{Detail: fmt.Sprintf("%s: dangling reference", ref)}
		}

		for field, lv := range n.Children {
			seen := map[ElementRef]bool{}
			for _, child := range lv.Refs() {
				if field != schema.OrphansField {
					if seen[child] {
						return &docerr.InvariantError{Detail: fmt.Sprintf("%s.%s: duplicate reference %s", ref, field, child)}
					}
					seen[child] = true
				}

				cn, ok := d.Get(child)
				if !ok {
					return &docerr.InvariantError{Detail: fmt.Sprintf("%s.%s -> %s: dangling reference", ref, field, child)}
				}
				if cn.Parent == nil || cn.Parent.Element != ref || cn.Parent.Field != field {
					return &docerr.InvariantError{Detail: fmt.Sprintf("%s: parent back-reference mismatch", child)}
				}
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(d.Root); err != nil {
		return err
	}

	for typ, m := range d.Types {
		for id, n := range m {
			ref := ElementRef{Type: typ, ID: id}
			if !reachable[ref] {
				return &docerr.InvariantError{Detail: fmt.Sprintf("%s: unreachable from root", ref)}
			}
			if n.Type != typ || n.ID != id {
				return &docerr.InvariantError{Detail: fmt.Sprintf("%s: node identity mismatch", ref)}
			}
		}
	}
	return nil
}
