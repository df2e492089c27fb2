package treediff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/treediff"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:     "doc",
		RootType: "Folder",
		Types: map[string]schema.NodeType{
			"Folder": {
				Name:   "Folder",
				Fields: map[string]schema.FieldDef{"name": {Type: schema.ScalarString}},
				Links: map[string]schema.LinkDef{
					"children": {Variant: schema.LinkArray, PermittedTypes: []string{"Folder", "Item"}},
				},
			},
			"Item": {
				Name:   "Item",
				Fields: map[string]schema.FieldDef{"title": {Type: schema.ScalarString}},
				Links:  map[string]schema.LinkDef{},
			},
		},
	}
}

func newRoot() *docmodel.Document {
	return docmodel.New(testSchema(), "root", map[string]any{"name": "root"})
}

func TestDiffNoChangeReturnsEmpty(t *testing.T) {
	t.Parallel()

	base := newRoot()
	m := mutable.New(base)
	_, _ = m.Insert(m.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "a"}})
	later := m.Snapshot()

	// base and later, freshly re-derived from the same snapshot, diff to
	// nothing (spec.md §8 scenario: identical trees produce an empty
	// command list).
	cmds := treediff.Diff(later, later)
	require.Empty(t, cmds)
}

func TestDiffInsertUnderNewParent(t *testing.T) {
	t.Parallel()

	base := newRoot()
	bm := mutable.New(base)
	folderRef, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Folder", ID: "f1", Data: map[string]any{"name": "f1"}})
	baseSnap := bm.Snapshot()

	lm := mutable.New(baseSnap)
	itemRef, _ := lm.Insert(folderRef, mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "new item"}})
	later := lm.Snapshot()

	cmds := treediff.Diff(baseSnap, later)
	require.NotEmpty(t, cmds)

	replayed := mutable.New(baseSnap)
	require.NoError(t, replayed.ApplyAll(cmds))
	result := replayed.Snapshot()

	folderNode, ok := result.Get(folderRef)
	require.True(t, ok)
	require.Contains(t, folderNode.Children["children"].Array, itemRef)
}

func TestDiffReparentExistingItem(t *testing.T) {
	t.Parallel()

	base := newRoot()
	bm := mutable.New(base)
	folderRef, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Folder", ID: "f1", Data: map[string]any{"name": "f1"}})
	itemRef, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "item"}})
	baseSnap := bm.Snapshot()

	lm := mutable.New(baseSnap)
	_ = lm.Move(itemRef, folderRef, mutable.Position{Field: "children", Index: -1}, nil)
	later := lm.Snapshot()

	cmds := treediff.Diff(baseSnap, later)
	require.Len(t, cmds, 1)
	require.Equal(t, mutable.KindMove, cmds[0].Kind)
	require.Equal(t, itemRef, cmds[0].Target)
	require.Equal(t, folderRef, cmds[0].ToParent)

	replayed := mutable.New(baseSnap)
	require.NoError(t, replayed.ApplyAll(cmds))
	result := replayed.Snapshot()

	rootNode := result.RootNode()
	require.NotContains(t, rootNode.Children["children"].Array, itemRef)

	folderNode, ok := result.Get(folderRef)
	require.True(t, ok)
	require.Contains(t, folderNode.Children["children"].Array, itemRef)
}

func TestDiffSchemaMismatchReturnsEmpty(t *testing.T) {
	t.Parallel()

	base := newRoot()
	otherSchema := testSchema()
	otherSchema.Name = "other-doc"
	later := docmodel.New(otherSchema, "root", nil)

	cmds := treediff.Diff(base, later)
	require.Empty(t, cmds)
}
