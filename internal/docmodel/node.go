package docmodel

import "github.com/mibar/hierdoc/internal/schema"

// LinkValue is the tagged variant a child-link field holds: a single
// optional reference, an ordered array of references, or a keyed set of
// references. Exactly one of the three is meaningful, selected by Variant.
type LinkValue struct {
	Variant schema.LinkVariant

	Single ElementRef    // meaningful when Variant == LinkSingle; zero value = absent
	Array  []ElementRef  // meaningful when Variant == LinkArray
	Set    *OrderedRefs  // meaningful when Variant == LinkSet
}

// EmptyLinkValue returns the empty link value for the given variant.
func EmptyLinkValue(variant schema.LinkVariant) LinkValue {
	switch variant {
	case schema.LinkArray:
		return LinkValue{Variant: schema.LinkArray, Array: []ElementRef{}}
	case schema.LinkSet:
		return LinkValue{Variant: schema.LinkSet, Set: NewOrderedRefs()}
	default:
		return LinkValue{Variant: schema.LinkSingle}
	}
}

// Clone returns a deep-enough copy (new slice/map backing, same ElementRef
// values) so mutating the clone never affects the original.
func (lv LinkValue) Clone() LinkValue {
	switch lv.Variant {
	case schema.LinkArray:
		return LinkValue{Variant: lv.Variant, Array: append([]ElementRef(nil), lv.Array...)}
	case schema.LinkSet:
		return LinkValue{Variant: lv.Variant, Set: lv.Set.Clone()}
	default:
		return LinkValue{Variant: lv.Variant, Single: lv.Single}
	}
}

// Refs returns every reference held by this link value, in iteration order
// (positional for arrays, insertion order for sets, single-or-empty for
// single links).
func (lv LinkValue) Refs() []ElementRef {
	switch lv.Variant {
	case schema.LinkArray:
		return append([]ElementRef(nil), lv.Array...)
	case schema.LinkSet:
		keys := lv.Set.Keys()
		out := make([]ElementRef, 0, len(keys))
		for _, k := range keys {
			ref, _ := lv.Set.Get(k)
			out = append(out, ref)
		}
		return out
	default:
		if lv.Single.IsZero() {
			return nil
		}
		return []ElementRef{lv.Single}
	}
}

// Node is an immutable record in a normalized document snapshot.
type Node struct {
	Type     string
	ID       string
	Data     map[string]any
	Children map[string]LinkValue
	Parent   *ParentRef // nil for the root
}

// Ref returns this node's element reference.
func (n *Node) Ref() ElementRef { return ElementRef{Type: n.Type, ID: n.ID} }

// Clone returns a shallow-record copy: a fresh Data map and a fresh
// Children map (with cloned link values), suitable for copy-on-write
// mutation without touching the original node.
func (n *Node) Clone() *Node {
	data := make(map[string]any, len(n.Data))
	for k, v := range n.Data {
		data[k] = v
	}
	children := make(map[string]LinkValue, len(n.Children))
	for k, v := range n.Children {
		children[k] = v.Clone()
	}
	var parent *ParentRef
	if n.Parent != nil {
		p := *n.Parent
		parent = &p
	}
	return &Node{Type: n.Type, ID: n.ID, Data: data, Children: children, Parent: parent}
}
