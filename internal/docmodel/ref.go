package docmodel

import "fmt"

// ElementRef is the (node-type, identifier) pair used to address a node
// without carrying it by value. Equality is structural.
type ElementRef struct {
	Type string
	ID   string
}

// IsZero reports whether r is the zero-value reference, used as the "absent"
// marker for single links.
func (r ElementRef) IsZero() bool { return r.Type == "" && r.ID == "" }

func (r ElementRef) String() string { return fmt.Sprintf("%s/%s", r.Type, r.ID) }

// ParentRef is a node's back-reference to its containing element and the
// link field within it that holds the node. The root has no parent.
type ParentRef struct {
	Element ElementRef
	Field   string
}
