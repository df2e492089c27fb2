package mutable

import (
	"fmt"

	"github.com/mibar/hierdoc/internal/docerr"
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/schema"
)

// Selector addresses one hop of a Path: a link-field name for a single
// link, a (field, index) pair for an array link, or a (field, key) pair for
// a keyed-set link.
type Selector struct {
	Field string
	Index int // array selector; -1 means "not an array selector"
	Key   string
}

// Field returns a single-link selector.
func Field(name string) Selector { return Selector{Field: name, Index: -1} }

// At returns an array-link selector.
func At(name string, index int) Selector { return Selector{Field: name, Index: index} }

// Keyed returns a keyed-set-link selector.
func Keyed(name, key string) Selector { return Selector{Field: name, Index: -1, Key: key} }

func (s Selector) isArray() bool { return s.Index >= 0 }
func (s Selector) isKeyed() bool { return s.Key != "" }

// Path is a sequence of link-field selectors from the document root. Paths
// are a caller convenience; the engine canonicalizes every reference it
// records to an ElementRef.
type Path []Selector

// Source is the minimal node lookup surface Path resolution needs. Both
// *docmodel.Document and *Document (the mutable overlay, mid-edit) satisfy
// it, so paths resolve consistently whether used against a snapshot or
// against a document being built.
type Source interface {
	GetRoot() docmodel.ElementRef
	Get(ref docmodel.ElementRef) (*docmodel.Node, bool)
}

// Resolve follows the selectors in p from src's root and returns the
// element reference they address.
func Resolve(src Source, p Path) (docmodel.ElementRef, error) {
	cur := src.GetRoot()
	for _, sel := range p {
		n, ok := src.Get(cur)
		if !ok {
			return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: fmt.Sprintf("path: %s does not resolve", cur)}
		}
		lv, ok := n.Children[sel.Field]
		if !ok {
			return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: fmt.Sprintf("path: %s has no link field %q", cur, sel.Field)}
		}

		switch {
		case sel.isKeyed():
			if lv.Variant != schema.LinkSet {
				return docmodel.ElementRef{}, &docerr.LinkShapeError{Field: sel.Field, Want: "set", Got: lv.Variant.String()}
			}
			ref, ok := lv.Set.Get(sel.Key)
			if !ok {
				return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: fmt.Sprintf("path: %s.%s has no key %q", cur, sel.Field, sel.Key)}
			}
			cur = ref
		case sel.isArray():
			if lv.Variant != schema.LinkArray {
				return docmodel.ElementRef{}, &docerr.LinkShapeError{Field: sel.Field, Want: "array", Got: lv.Variant.String()}
			}
			if sel.Index < 0 || sel.Index >= len(lv.Array) {
				return docmodel.ElementRef{}, &docerr.IndexError{Field: sel.Field, Index: sel.Index, Len: len(lv.Array)}
			}
			cur = lv.Array[sel.Index]
		default:
			if lv.Variant != schema.LinkSingle {
				return docmodel.ElementRef{}, &docerr.LinkShapeError{Field: sel.Field, Want: "single", Got: lv.Variant.String()}
			}
			if lv.Single.IsZero() {
				return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: fmt.Sprintf("path: %s.%s is absent", cur, sel.Field)}
			}
			cur = lv.Single
		}
	}
	return cur, nil
}

// ResolveTarget accepts either a docmodel.ElementRef or a Path and returns
// the canonical element reference.
func ResolveTarget(src Source, target any) (docmodel.ElementRef, error) {
	switch t := target.(type) {
	case docmodel.ElementRef:
		return t, nil
	case Path:
		return Resolve(src, t)
	default:
		return docmodel.ElementRef{}, &docerr.ReferenceError{Detail: fmt.Sprintf("unsupported target type %T", target)}
	}
}
