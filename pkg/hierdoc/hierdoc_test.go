package hierdoc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/pkg/hierdoc"
)

func testSchema() *hierdoc.Schema {
	return &hierdoc.Schema{
		Name:     "doc",
		RootType: "Folder",
		Types: map[string]hierdoc.NodeType{
			"Folder": {
				Name:   "Folder",
				Fields: map[string]hierdoc.FieldDef{"name": {Type: hierdoc.ScalarString}},
				Links: map[string]hierdoc.LinkDef{
					"children": {Variant: hierdoc.LinkArray, PermittedTypes: []string{"Folder", "Item"}},
				},
			},
			"Item": {
				Name:   "Item",
				Fields: map[string]hierdoc.FieldDef{"title": {Type: hierdoc.ScalarString}},
				Links:  map[string]hierdoc.LinkDef{},
			},
		},
	}
}

func TestCreateNormalizedDocumentSeedsRootData(t *testing.T) {
	t.Parallel()

	doc := hierdoc.CreateNormalizedDocument(testSchema(), "root", map[string]any{"name": "r"})
	root, ok := doc.Get(doc.Root)
	require.True(t, ok)
	require.Equal(t, "r", root.Data["name"])
}

func TestMutableDocumentInsertAndSnapshot(t *testing.T) {
	t.Parallel()

	doc := hierdoc.CreateNormalizedDocument(testSchema(), "root", nil)
	m := hierdoc.MutableDocument(doc)

	ref, err := m.Insert(m.GetRoot(), hierdoc.Position{Field: "children", Index: -1}, hierdoc.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "hi"}})
	require.NoError(t, err)

	snap := m.Snapshot()
	n, ok := snap.Get(ref)
	require.True(t, ok)
	require.Equal(t, "hi", n.Data["title"])
}

func TestVisitDocumentBFS(t *testing.T) {
	t.Parallel()

	doc := hierdoc.CreateNormalizedDocument(testSchema(), "root", nil)
	m := hierdoc.MutableDocument(doc)
	_, _ = m.Insert(m.GetRoot(), hierdoc.Position{Field: "children", Index: -1}, hierdoc.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "a"}})
	_, _ = m.Insert(m.GetRoot(), hierdoc.Position{Field: "children", Index: -1}, hierdoc.ElementSpec{Type: "Item", ID: "i2", Data: map[string]any{"title": "b"}})
	snap := m.Snapshot()

	var seen []string
	hierdoc.VisitDocument(snap, func(n *hierdoc.Node) {
		seen = append(seen, n.ID)
	}, hierdoc.VisitOptions{Order: hierdoc.BFS})

	require.Equal(t, []string{"root", "i1", "i2"}, seen)
}

func TestDiffProducesReplayableCommands(t *testing.T) {
	t.Parallel()

	base := hierdoc.CreateNormalizedDocument(testSchema(), "root", nil)
	m := hierdoc.MutableDocument(base)
	itemRef, _ := m.Insert(m.GetRoot(), hierdoc.Position{Field: "children", Index: -1}, hierdoc.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "new"}})
	later := m.Snapshot()

	cmds := hierdoc.Diff(base, later)
	require.NotEmpty(t, cmds)

	result := hierdoc.DocReducer(base, cmds, nil)
	n, ok := result.Get(itemRef)
	require.True(t, ok)
	require.Equal(t, "new", n.Data["title"])
}

func TestDocReducerStopsOnFirstBadCommand(t *testing.T) {
	t.Parallel()

	base := hierdoc.CreateNormalizedDocument(testSchema(), "root", nil)
	cmds := []hierdoc.Command{
		{Kind: hierdoc.KindInsert, Parent: base.Root, Position: hierdoc.Position{Field: "children", Index: -1}, Element: hierdoc.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "ok"}}},
		{Kind: hierdoc.KindInsert, Parent: hierdoc.ElementRef{Type: "Folder", ID: "missing"}, Position: hierdoc.Position{Field: "children", Index: -1}, Element: hierdoc.ElementSpec{Type: "Item", ID: "i2"}},
	}

	result := hierdoc.DocReducer(base, cmds, nil)
	_, ok := result.Get(hierdoc.ElementRef{Type: "Item", ID: "i1"})
	require.True(t, ok, "the first, valid command should still have applied")
	_, ok = result.Get(hierdoc.ElementRef{Type: "Item", ID: "i2"})
	require.False(t, ok, "the second, invalid command should have been swallowed")
}

func TestThreeWayMergeReportsConflicts(t *testing.T) {
	t.Parallel()

	base := hierdoc.CreateNormalizedDocument(testSchema(), "root", nil)
	bm := hierdoc.MutableDocument(base)
	itemRef, _ := bm.Insert(bm.GetRoot(), hierdoc.Position{Field: "children", Index: -1}, hierdoc.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "orig"}})
	baseSnap := bm.Snapshot()

	mm := hierdoc.MutableDocument(baseSnap)
	require.NoError(t, mm.Change(itemRef, map[string]any{"title": "mine"}))
	mine := mm.Snapshot()

	tm := hierdoc.MutableDocument(baseSnap)
	require.NoError(t, tm.Change(itemRef, map[string]any{"title": "their"}))
	their := tm.Snapshot()

	merged, conflicts, err := hierdoc.ThreeWayMerge(baseSnap, mine, their, nil)
	require.NoError(t, err)
	require.NotEmpty(t, conflicts["Item"]["i1"].InfoConflicts)

	n, ok := merged.Get(itemRef)
	require.True(t, ok)
	require.Contains(t, []string{"mine", "their"}, n.Data["title"])
}

func TestThreeWayMergeWithElementHooksOverride(t *testing.T) {
	t.Parallel()

	base := hierdoc.CreateNormalizedDocument(testSchema(), "root", nil)
	bm := hierdoc.MutableDocument(base)
	itemRef, _ := bm.Insert(bm.GetRoot(), hierdoc.Position{Field: "children", Index: -1}, hierdoc.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "orig"}})
	baseSnap := bm.Snapshot()

	mm := hierdoc.MutableDocument(baseSnap)
	require.NoError(t, mm.Change(itemRef, map[string]any{"title": "mine"}))
	mine := mm.Snapshot()

	tm := hierdoc.MutableDocument(baseSnap)
	require.NoError(t, tm.Change(itemRef, map[string]any{"title": "their"}))
	their := tm.Snapshot()

	pickTheir := hierdoc.WithElementHooks("Item", hierdoc.ElementHooks{
		MergeElementInfo: func(fields map[string]hierdoc.FieldDef, base, mine, their map[string]any) (map[string]any, map[string]hierdoc.FieldConflict) {
			return their, nil
		},
	})

	merged, conflicts, err := hierdoc.ThreeWayMerge(baseSnap, mine, their, nil, pickTheir)
	require.NoError(t, err)
	require.Empty(t, conflicts)

	n, ok := merged.Get(itemRef)
	require.True(t, ok)
	require.Equal(t, "their", n.Data["title"])
}

func TestDiffArrayApplyArrayDiffRoundTrips(t *testing.T) {
	t.Parallel()

	base := []string{"a", "b", "c"}
	later := []string{"b", "a", "c", "d"}

	ops, _ := hierdoc.DiffArray(base, later, func(a, b string) bool { return a == b })
	result := hierdoc.ApplyArrayDiff(base, ops)
	require.Equal(t, later, result)
}

func TestThreeWayMergeArrayDropsConflictingMove(t *testing.T) {
	t.Parallel()

	base := []string{"a", "b", "c"}
	mine := []string{"c", "a", "b"}
	their := []string{"a", "c", "b"}

	merged, conflict := hierdoc.ThreeWayMergeArray(base, mine, their, func(a, b string) bool { return a == b })
	require.True(t, conflict)
	require.ElementsMatch(t, base, merged)
}
