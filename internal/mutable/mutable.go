// Package mutable implements the copy-on-write overlay over a normalized
// document snapshot: buffered structural edits recorded as a command log,
// materialized back into a fresh snapshot on demand (component D, spec.md
// §4.2).
package mutable

import (
	"fmt"

	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/idgen"
	"github.com/mibar/hierdoc/internal/schema"
)

// Document wraps a base snapshot and a lazy copy-on-write per-type node
// map. It is not safe for concurrent mutation; the caller owns exclusive
// access for its lifetime.
type Document struct {
	base    *docmodel.Document
	schema  *schema.Schema
	root    docmodel.ElementRef
	overlay map[string]map[string]*docmodel.Node // only populated for diverged types
	tomb    map[docmodel.ElementRef]bool         // deleted since base
	log     []Command
	dirty   bool
	idGen   idgen.Generator
}

// Option configures a new Document.
type Option func(*Document)

// WithIDGenerator overrides the default identifier generator used by Insert
// when the caller does not supply one.
func WithIDGenerator(g idgen.Generator) Option {
	return func(m *Document) { m.idGen = g }
}

// New wraps base in a mutable overlay.
func New(base *docmodel.Document, opts ...Option) *Document {
	m := &Document{
		base:  base,
		schema: base.Schema,
		root:  base.Root,
		tomb:  map[docmodel.ElementRef]bool{},
		idGen: idgen.New(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Log returns the recorded command list, in emission order.
func (m *Document) Log() []Command { return append([]Command(nil), m.log...) }

// Dirty reports whether any mutation has been applied.
func (m *Document) Dirty() bool { return m.dirty }

// GetRoot returns the document's root element reference.
func (m *Document) GetRoot() docmodel.ElementRef { return m.root }

// Get resolves a reference against the overlay, falling through to base.
func (m *Document) Get(ref docmodel.ElementRef) (*docmodel.Node, bool) {
	if m.tomb[ref] {
		return nil, false
	}
	if typ, ok := m.overlay[ref.Type]; ok {
		if n, ok := typ[ref.ID]; ok {
			return n, true
		}
	}
	return m.base.Get(ref)
}

func (m *Document) mustGet(ref docmodel.ElementRef) *docmodel.Node {
	n, ok := m.Get(ref)
	if !ok {
		panic(fmt.Sprintf("mutable: reference %s not found", ref))
	}
	return n
}

// diverge returns the overlay type map for typ, cloning it from base the
// first time this type is touched.
func (m *Document) diverge(typ string) map[string]*docmodel.Node {
	if m.overlay == nil {
		m.overlay = map[string]map[string]*docmodel.Node{}
	}
	if existing, ok := m.overlay[typ]; ok {
		return existing
	}
	fresh := make(map[string]*docmodel.Node)
	for id, n := range m.base.Types[typ] {
		fresh[id] = n
	}
	m.overlay[typ] = fresh
	return fresh
}

func (m *Document) put(n *docmodel.Node) {
	ref := n.Ref()
	delete(m.tomb, ref)
	m.diverge(ref.Type)[ref.ID] = n
}

func (m *Document) erase(ref docmodel.ElementRef) {
	if typ, ok := m.overlay[ref.Type]; ok {
		delete(typ, ref.ID)
	}
	m.tomb[ref] = true
}

// Snapshot materializes the overlay into a fresh immutable document,
// sharing unchanged node records with base.
func (m *Document) Snapshot() *docmodel.Document {
	types := make(map[string]map[string]*docmodel.Node, len(m.base.Types))
	for typ, baseNodes := range m.base.Types {
		merged := make(map[string]*docmodel.Node, len(baseNodes))
		for id, n := range baseNodes {
			ref := docmodel.ElementRef{Type: typ, ID: id}
			if m.tomb[ref] {
				continue
			}
			merged[id] = n
		}
		types[typ] = merged
	}
	for typ, overlayNodes := range m.overlay {
		merged, ok := types[typ]
		if !ok {
			merged = make(map[string]*docmodel.Node, len(overlayNodes))
			types[typ] = merged
		}
		for id, n := range overlayNodes {
			ref := docmodel.ElementRef{Type: typ, ID: id}
			if m.tomb[ref] {
				continue
			}
			merged[id] = n
		}
	}
	return &docmodel.Document{Schema: m.schema, Root: m.root, Types: types}
}

// emit appends cmd to the change log and marks the document dirty.
func (m *Document) emit(cmd Command) {
	m.log = append(m.log, cmd)
	m.dirty = true
}

// linkFields returns the declared link fields for a node type, including
// the synthetic __orphans array.
func (m *Document) linkFields(typ string) map[string]schema.LinkDef {
	nt, _ := m.schema.NodeType(typ)
	out := make(map[string]schema.LinkDef, len(nt.Links)+1)
	for f, ld := range nt.Links {
		out[f] = ld
	}
	out[schema.OrphansField] = schema.LinkDef{Variant: schema.LinkArray}
	return out
}

func emptyChildren(m *Document, typ string) map[string]docmodel.LinkValue {
	fields := m.linkFields(typ)
	out := make(map[string]docmodel.LinkValue, len(fields))
	for f, ld := range fields {
		out[f] = docmodel.EmptyLinkValue(ld.Variant)
	}
	return out
}
