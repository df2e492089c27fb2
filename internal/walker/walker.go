// Package walker implements breadth-first and depth-first traversal of a
// normalized document, with type filters and a subtree start point
// (component C, spec.md §4.1).
package walker

import (
	"sort"

	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/queue"
	"github.com/mibar/hierdoc/internal/schema"
)

// Order selects traversal strategy.
type Order int

const (
	// BFS visits parents before children (the default).
	BFS Order = iota
	// DFS visits post-order: deepest leaves before their parents.
	DFS
)

// Options configures a walk.
type Options struct {
	Order Order

	// TypesToVisit restricts which node types are reported to the visitor.
	// Nil means every type is reported.
	TypesToVisit []string

	// TypesToTraverse restricts which node types the walk descends through.
	// Nil means every type is descended through.
	TypesToTraverse []string

	// Start restricts the walk to the subtree rooted at this element. The
	// zero value means the document root.
	Start docmodel.ElementRef
}

// VisitFunc is invoked synchronously for every selected node. There is no
// suspension: the walk completes entirely within the call to Visit.
type VisitFunc func(n *docmodel.Node)

func typeSet(types []string) map[string]bool {
	if types == nil {
		return nil
	}
	m := make(map[string]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

// Visit walks doc according to opts, calling visitor for every node that
// passes the TypesToVisit filter.
func Visit(doc *docmodel.Document, visitor VisitFunc, opts Options) {
	start := opts.Start
	if start.IsZero() {
		start = doc.Root
	}

	visitTypes := typeSet(opts.TypesToVisit)
	traverseTypes := typeSet(opts.TypesToTraverse)

	shouldVisit := func(n *docmodel.Node) bool {
		return visitTypes == nil || visitTypes[n.Type]
	}
	shouldTraverse := func(n *docmodel.Node) bool {
		return traverseTypes == nil || traverseTypes[n.Type]
	}

	root, ok := doc.Get(start)
	if !ok {
		return
	}

	switch opts.Order {
	case DFS:
		visitDFS(doc, root, shouldVisit, shouldTraverse, visitor)
	default:
		visitBFS(doc, root, shouldVisit, shouldTraverse, visitor)
	}
}

func orderedLinkFields(n *docmodel.Node) []string {
	fields := make([]string, 0, len(n.Children))
	for f := range n.Children {
		if f == schema.OrphansField {
			continue
		}
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func childRefs(doc *docmodel.Document, n *docmodel.Node) []docmodel.ElementRef {
	var out []docmodel.ElementRef
	for _, field := range orderedLinkFields(n) {
		out = append(out, n.Children[field].Refs()...)
	}
	return out
}

func visitBFS(doc *docmodel.Document, root *docmodel.Node, shouldVisit, shouldTraverse func(*docmodel.Node) bool, visitor VisitFunc) {
	q := queue.New[*docmodel.Node]()
	q.Enqueue(root)

	for !q.IsEmpty() {
		n, ok := q.Dequeue()
		if !ok {
			break
		}
		if shouldVisit(n) {
			visitor(n)
		}
		if !shouldTraverse(n) {
			continue
		}
		for _, ref := range childRefs(doc, n) {
			if child, ok := doc.Get(ref); ok {
				q.Enqueue(child)
			}
		}
	}
}

func visitDFS(doc *docmodel.Document, n *docmodel.Node, shouldVisit, shouldTraverse func(*docmodel.Node) bool, visitor VisitFunc) {
	if shouldTraverse(n) {
		for _, ref := range childRefs(doc, n) {
			if child, ok := doc.Get(ref); ok {
				visitDFS(doc, child, shouldVisit, shouldTraverse, visitor)
			}
		}
	}
	if shouldVisit(n) {
		visitor(n)
	}
}
