package main

import (
	"fmt"

	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
)

// wireSchema is the YAML-serializable mirror of schema.Schema: the CLI's
// documents are plain data, but the schema that gives them shape has to be
// supplied alongside them, since spec.md's normalized document carries no
// self-describing type information of its own.
type wireSchema struct {
	Name     string                  `yaml:"name"`
	RootType string                  `yaml:"rootType"`
	Types    map[string]wireNodeType `yaml:"types"`
}

type wireNodeType struct {
	Fields map[string]wireField `yaml:"fields,omitempty"`
	Links  map[string]wireLink  `yaml:"links,omitempty"`
}

type wireField struct {
	Type    string `yaml:"type"`
	Default any    `yaml:"default,omitempty"`
}

type wireLink struct {
	Variant        string   `yaml:"variant"`
	PermittedTypes []string `yaml:"permittedTypes,omitempty"`
}

func scalarTypeFromString(s string) (schema.ScalarType, error) {
	switch s {
	case "bool":
		return schema.ScalarBool, nil
	case "number":
		return schema.ScalarNumber, nil
	case "string":
		return schema.ScalarString, nil
	case "date":
		return schema.ScalarDate, nil
	case "array":
		return schema.ScalarArray, nil
	}
	return schema.ScalarUnknown, fmt.Errorf("unknown field type %q", s)
}

func linkVariantFromString(s string) (schema.LinkVariant, error) {
	switch s {
	case "single":
		return schema.LinkSingle, nil
	case "array":
		return schema.LinkArray, nil
	case "set":
		return schema.LinkSet, nil
	}
	return schema.LinkUnknown, fmt.Errorf("unknown link variant %q", s)
}

func buildSchema(w wireSchema) (*schema.Schema, error) {
	sch := &schema.Schema{
		Name:     w.Name,
		RootType: w.RootType,
		Types:    make(map[string]schema.NodeType, len(w.Types)),
	}

	for name, wnt := range w.Types {
		nt := schema.NodeType{
			Name:   name,
			Fields: make(map[string]schema.FieldDef, len(wnt.Fields)),
			Links:  make(map[string]schema.LinkDef, len(wnt.Links)),
		}
		for field, wf := range wnt.Fields {
			t, err := scalarTypeFromString(wf.Type)
			if err != nil {
				return nil, fmt.Errorf("type %s field %s: %w", name, field, err)
			}
			nt.Fields[field] = schema.FieldDef{Type: t, Default: wf.Default}
		}
		for field, wl := range wnt.Links {
			v, err := linkVariantFromString(wl.Variant)
			if err != nil {
				return nil, fmt.Errorf("type %s link %s: %w", name, field, err)
			}
			nt.Links[field] = schema.LinkDef{Variant: v, PermittedTypes: wl.PermittedTypes}
		}
		sch.Types[name] = nt
	}
	return sch, nil
}

// wireRef addresses a node by type and id.
type wireRef struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

func (r wireRef) toRef() docmodel.ElementRef {
	if r.Type == "" && r.ID == "" {
		return docmodel.ElementRef{}
	}
	return docmodel.ElementRef{Type: r.Type, ID: r.ID}
}

func fromRef(r docmodel.ElementRef) wireRef {
	return wireRef{Type: r.Type, ID: r.ID}
}

// wireDocument is the YAML-serializable mirror of docmodel.Document: a
// root reference plus, per node type, a list of nodes.
type wireDocument struct {
	Root  wireRef               `yaml:"root"`
	Nodes map[string][]wireNode `yaml:"nodes"`
}

type wireNode struct {
	ID       string                   `yaml:"id"`
	Data     map[string]any           `yaml:"data,omitempty"`
	Children map[string]wireLinkValue `yaml:"children,omitempty"`
}

type wireLinkValue struct {
	Single *wireRef       `yaml:"single,omitempty"`
	Array  []wireRef      `yaml:"array,omitempty"`
	Set    []wireSetEntry `yaml:"set,omitempty"`
}

type wireSetEntry struct {
	Key string  `yaml:"key"`
	Ref wireRef `yaml:"ref"`
}

func buildDocument(sch *schema.Schema, w wireDocument) (*docmodel.Document, error) {
	types := make(map[string]map[string]*docmodel.Node, len(w.Nodes))

	for typeName, nodes := range w.Nodes {
		nt, ok := sch.NodeType(typeName)
		if !ok {
			return nil, fmt.Errorf("document references unknown node type %q", typeName)
		}

		byID := make(map[string]*docmodel.Node, len(nodes))
		for _, wn := range nodes {
			children := make(map[string]docmodel.LinkValue, len(nt.Links)+1)
			for field, ld := range nt.Links {
				children[field] = docmodel.EmptyLinkValue(ld.Variant)
			}
			children[schema.OrphansField] = docmodel.EmptyLinkValue(schema.LinkArray)

			for field, wlv := range wn.Children {
				ld, ok := nt.Links[field]
				if !ok {
					return nil, fmt.Errorf("node %s/%s: unknown link field %q", typeName, wn.ID, field)
				}
				lv := docmodel.LinkValue{Variant: ld.Variant}
				switch ld.Variant {
				case schema.LinkSingle:
					if wlv.Single != nil {
						lv.Single = wlv.Single.toRef()
					}
				case schema.LinkArray:
					for _, r := range wlv.Array {
						lv.Array = append(lv.Array, r.toRef())
					}
				case schema.LinkSet:
					lv.Set = docmodel.NewOrderedRefs()
					for _, e := range wlv.Set {
						lv.Set.Set(e.Key, e.Ref.toRef())
					}
				}
				children[field] = lv
			}

			data := nt.DefaultData()
			for k, v := range wn.Data {
				data[k] = v
			}

			byID[wn.ID] = &docmodel.Node{Type: typeName, ID: wn.ID, Data: data, Children: children}
		}
		types[typeName] = byID
	}

	doc := &docmodel.Document{Schema: sch, Root: w.Root.toRef(), Types: types}
	if err := wireParentRefs(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// wireParentRefs derives every node's Parent back-reference from its
// parent's declared children, since the wire format only records the
// forward direction.
func wireParentRefs(doc *docmodel.Document) error {
	for _, byID := range doc.Types {
		for _, n := range byID {
			for field, lv := range n.Children {
				for _, child := range lv.Refs() {
					cn, ok := doc.Get(child)
					if !ok {
						return fmt.Errorf("%s.%s -> %s: dangling reference", n.Ref(), field, child)
					}
					cn.Parent = &docmodel.ParentRef{Element: n.Ref(), Field: field}
				}
			}
		}
	}
	return nil
}

func toWireDocument(doc *docmodel.Document) wireDocument {
	w := wireDocument{Root: fromRef(doc.Root), Nodes: map[string][]wireNode{}}

	for typeName, byID := range doc.Types {
		var nodes []wireNode
		for id, n := range byID {
			wn := wireNode{ID: id, Data: n.Data}
			if len(n.Children) > 0 {
				wn.Children = map[string]wireLinkValue{}
				for field, lv := range n.Children {
					if field == "__orphans" && len(lv.Array) == 0 {
						continue
					}
					wn.Children[field] = toWireLinkValue(lv)
				}
			}
			nodes = append(nodes, wn)
		}
		w.Nodes[typeName] = nodes
	}
	return w
}

// wirePosition and wireCommand are the YAML-serializable mirror of
// mutable.Position and mutable.Command, used to print a diff's command list
// in a form a caller can read or replay elsewhere.
type wirePosition struct {
	Field string `yaml:"field"`
	Index int    `yaml:"index,omitempty"`
	Key   string `yaml:"key,omitempty"`
}

func fromPosition(p mutable.Position) wirePosition {
	return wirePosition{Field: p.Field, Index: p.Index, Key: p.Key}
}

type wireElementSpec struct {
	Type string         `yaml:"type"`
	ID   string         `yaml:"id,omitempty"`
	Data map[string]any `yaml:"data,omitempty"`
}

type wireCommand struct {
	Kind string `yaml:"kind"`

	Parent   *wireRef         `yaml:"parent,omitempty"`
	Position *wirePosition    `yaml:"position,omitempty"`
	Element  *wireElementSpec `yaml:"element,omitempty"`

	Target *wireRef `yaml:"target,omitempty"`

	Changes map[string]any `yaml:"changes,omitempty"`

	ToParent   *wireRef      `yaml:"toParent,omitempty"`
	ToPosition *wirePosition `yaml:"toPosition,omitempty"`
}

func toWireCommands(cmds []mutable.Command) []wireCommand {
	out := make([]wireCommand, 0, len(cmds))
	for _, c := range cmds {
		wc := wireCommand{Kind: c.Kind.String()}
		switch c.Kind {
		case mutable.KindInsert:
			parent := fromRef(c.Parent)
			pos := fromPosition(c.Position)
			elem := wireElementSpec{Type: c.Element.Type, ID: c.Element.ID, Data: c.Element.Data}
			wc.Parent, wc.Position, wc.Element = &parent, &pos, &elem
		case mutable.KindChange:
			target := fromRef(c.Target)
			wc.Target, wc.Changes = &target, c.Changes
		case mutable.KindMove:
			target := fromRef(c.Target)
			toParent := fromRef(c.ToParent)
			toPos := fromPosition(c.ToPosition)
			wc.Target, wc.ToParent, wc.ToPosition = &target, &toParent, &toPos
			wc.Changes = c.Changes
		case mutable.KindDelete:
			target := fromRef(c.Target)
			wc.Target = &target
		}
		out = append(out, wc)
	}
	return out
}

func toWireLinkValue(lv docmodel.LinkValue) wireLinkValue {
	var wlv wireLinkValue
	switch lv.Variant {
	case schema.LinkSingle:
		if !lv.Single.IsZero() {
			r := fromRef(lv.Single)
			wlv.Single = &r
		}
	case schema.LinkArray:
		for _, r := range lv.Array {
			wlv.Array = append(wlv.Array, fromRef(r))
		}
	case schema.LinkSet:
		if lv.Set != nil {
			for _, k := range lv.Set.Keys() {
				ref, _ := lv.Set.Get(k)
				wlv.Set = append(wlv.Set, wireSetEntry{Key: k, Ref: fromRef(ref)})
			}
		}
	}
	return wlv
}
