package treemerge_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/internal/docerr"
	"github.com/mibar/hierdoc/internal/docmodel"
	"github.com/mibar/hierdoc/internal/mutable"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/treemerge"
)

// seqIDGen hands out deterministic, predictable identifiers so assertions
// about cloned subtrees (spec.md §4.8.5) don't have to guess a uuid.
type seqIDGen struct{ n int }

func (g *seqIDGen) New() string {
	g.n++
	return fmt.Sprintf("clone%d", g.n)
}

func testSchema(name string) *schema.Schema {
	return &schema.Schema{
		Name:     name,
		RootType: "Folder",
		Types: map[string]schema.NodeType{
			"Folder": {
				Name:   "Folder",
				Fields: map[string]schema.FieldDef{"name": {Type: schema.ScalarString}},
				Links: map[string]schema.LinkDef{
					"children": {Variant: schema.LinkArray, PermittedTypes: []string{"Folder", "Item"}},
					"tags":     {Variant: schema.LinkSet, PermittedTypes: []string{"Item"}},
				},
			},
			"Item": {
				Name: "Item",
				Fields: map[string]schema.FieldDef{
					"title":    {Type: schema.ScalarString},
					"priority": {Type: schema.ScalarNumber},
				},
				Links: map[string]schema.LinkDef{},
			},
		},
	}
}

func newRoot(name string) *docmodel.Document {
	return docmodel.New(testSchema(name), "root", map[string]any{"name": "root"})
}

func dataOf(t *testing.T, doc *docmodel.Document, ref treemerge.Ref) map[string]any {
	t.Helper()
	n, ok := doc.Get(ref)
	require.True(t, ok, "%s not found", ref)
	return n.Data
}

func childrenOf(t *testing.T, doc *docmodel.Document, ref treemerge.Ref, field string) []treemerge.Ref {
	t.Helper()
	n, ok := doc.Get(ref)
	require.True(t, ok, "%s not found", ref)
	return n.Children[field].Refs()
}

func TestThreeWayMergeIdentity(t *testing.T) {
	t.Parallel()

	base := newRoot("identity")
	m := mutable.New(base)
	folderRef, _ := m.Insert(m.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Folder", ID: "f1", Data: map[string]any{"name": "f1"}})
	itemRef, _ := m.Insert(folderRef, mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "orig", "priority": float64(10)}})
	doc := m.Snapshot()

	merged, conflicts, err := treemerge.ThreeWayMerge(doc, doc, doc)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, dataOf(t, doc, itemRef), dataOf(t, merged, itemRef))
	require.ElementsMatch(t, childrenOf(t, doc, folderRef, "children"), childrenOf(t, merged, folderRef, "children"))
}

func TestThreeWayMergeTheirEditSurvivesWhenMineUnchanged(t *testing.T) {
	t.Parallel()

	base := newRoot("mine-unchanged")
	bm := mutable.New(base)
	itemRef, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "orig", "priority": float64(1)}})
	baseSnap := bm.Snapshot()

	tm := mutable.New(baseSnap)
	require.NoError(t, tm.Change(itemRef, map[string]any{"title": "updated"}))
	their := tm.Snapshot()

	merged, conflicts, err := treemerge.ThreeWayMerge(baseSnap, baseSnap, their)
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, "updated", dataOf(t, merged, itemRef)["title"])
}

func TestThreeWayMergeScalarConflictRecorded(t *testing.T) {
	t.Parallel()

	base := newRoot("scalar-conflict")
	bm := mutable.New(base)
	itemRef, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "t", "priority": float64(10)}})
	baseSnap := bm.Snapshot()

	mm := mutable.New(baseSnap)
	require.NoError(t, mm.Change(itemRef, map[string]any{"priority": float64(12)})) // delta 2
	mine := mm.Snapshot()

	tm := mutable.New(baseSnap)
	require.NoError(t, tm.Change(itemRef, map[string]any{"priority": float64(20)})) // delta 10, farther from base
	their := tm.Snapshot()

	merged, conflicts, err := treemerge.ThreeWayMerge(baseSnap, mine, their)
	require.NoError(t, err)

	fc := conflicts["Item"]["i1"].InfoConflicts["priority"]
	require.Equal(t, float64(10), fc.Base)
	require.Equal(t, float64(12), fc.Mine)
	require.Equal(t, float64(20), fc.Their)
	require.Equal(t, float64(20), dataOf(t, merged, itemRef)["priority"])
}

// buildRelocationScenario constructs base/mine/their documents for spec.md
// §8's concurrent-relocation scenario: an item sits under F2 in base, mine
// moves it to F1, their moves it to F3 — two different new parents neither
// of which is the base parent.
func buildRelocationScenario(t *testing.T, schemaName string) (base, mine, their *docmodel.Document, f1, f3, item treemerge.Ref) {
	t.Helper()

	root := newRoot(schemaName)
	bm := mutable.New(root)
	f1Ref, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Folder", ID: "f1", Data: map[string]any{"name": "f1"}})
	f2Ref, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Folder", ID: "f2", Data: map[string]any{"name": "f2"}})
	f3Ref, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Folder", ID: "f3", Data: map[string]any{"name": "f3"}})
	itemRef, _ := bm.Insert(f2Ref, mutable.Position{Field: "children", Index: -1}, mutable.ElementSpec{Type: "Item", ID: "i1", Data: map[string]any{"title": "shared", "priority": float64(1)}})
	baseSnap := bm.Snapshot()

	mm := mutable.New(baseSnap)
	require.NoError(t, mm.Move(itemRef, f1Ref, mutable.Position{Field: "children", Index: -1}, nil))
	mine = mm.Snapshot()

	tm := mutable.New(baseSnap)
	require.NoError(t, tm.Move(itemRef, f3Ref, mutable.Position{Field: "children", Index: -1}, nil))
	their = tm.Snapshot()

	return baseSnap, mine, their, f1Ref, f3Ref, itemRef
}

func TestThreeWayMergeConcurrentRelocationClonesLoser(t *testing.T) {
	t.Parallel()

	base, mine, their, f1Ref, f3Ref, itemRef := buildRelocationScenario(t, "relocation-default")

	idGen := &seqIDGen{}
	merged, conflicts, err := treemerge.ThreeWayMerge(base, mine, their, treemerge.WithIDGenerator(idGen))
	require.NoError(t, err)

	pc := conflicts["Item"]["i1"].PositionConflicts
	require.NotNil(t, pc)
	require.Len(t, pc.ClonedElements, 1)
	clonedID := pc.ClonedElements[0]

	// Default OnIncompatibleElementVersions keeps mine's claim: the real
	// item stays under F1 (mine's destination), and a clone of it lands
	// under F3 (their's destination).
	require.Contains(t, childrenOf(t, merged, f1Ref, "children"), itemRef)
	f3Children := childrenOf(t, merged, f3Ref, "children")
	require.Len(t, f3Children, 1)
	require.Equal(t, clonedID, f3Children[0].ID)
	require.Equal(t, "shared", dataOf(t, merged, f3Children[0])["title"])
}

func TestThreeWayMergeWithElementHooksOverrideFlipsOwnership(t *testing.T) {
	t.Parallel()

	base, mine, their, f1Ref, f3Ref, itemRef := buildRelocationScenario(t, "relocation-hook-override")

	theirAlwaysWins := treemerge.WithElementHooks("Item", treemerge.Hooks{
		OnIncompatibleElementVersions: func(mineHeldSlot bool, child treemerge.Ref) bool { return false },
	})

	merged, conflicts, err := treemerge.ThreeWayMerge(base, mine, their, theirAlwaysWins)
	require.NoError(t, err)

	pc := conflicts["Item"]["i1"].PositionConflicts
	require.NotNil(t, pc)
	require.Len(t, pc.ClonedElements, 1)

	require.Contains(t, childrenOf(t, merged, f3Ref, "children"), itemRef)
	f1Children := childrenOf(t, merged, f1Ref, "children")
	require.Len(t, f1Children, 1)
	require.NotEqual(t, itemRef.ID, f1Children[0].ID)
}

func TestThreeWayMergeKeyedSetMergeByKey(t *testing.T) {
	t.Parallel()

	base := newRoot("keyed-set")
	bm := mutable.New(base)
	redRef, _ := bm.Insert(bm.GetRoot(), mutable.Position{Field: "tags", Key: "red"}, mutable.ElementSpec{Type: "Item", ID: "red-item", Data: map[string]any{"title": "red"}})
	baseSnap := bm.Snapshot()

	mm := mutable.New(baseSnap)
	_, err := mm.Insert(mm.GetRoot(), mutable.Position{Field: "tags", Key: "blue"}, mutable.ElementSpec{Type: "Item", ID: "blue-item", Data: map[string]any{"title": "blue"}})
	require.NoError(t, err)
	mine := mm.Snapshot()

	tm := mutable.New(baseSnap)
	_, err = tm.Insert(tm.GetRoot(), mutable.Position{Field: "tags", Key: "green"}, mutable.ElementSpec{Type: "Item", ID: "green-item", Data: map[string]any{"title": "green"}})
	require.NoError(t, err)
	their := tm.Snapshot()

	merged, conflicts, err := treemerge.ThreeWayMerge(baseSnap, mine, their)
	require.NoError(t, err)
	require.Empty(t, conflicts)

	rootNode, ok := merged.Get(merged.Root)
	require.True(t, ok)
	tags := rootNode.Children["tags"]
	require.NotNil(t, tags.Set)

	gotRed, ok := tags.Set.Get("red")
	require.True(t, ok)
	require.Equal(t, redRef, gotRed)

	gotBlue, ok := tags.Set.Get("blue")
	require.True(t, ok)
	require.Equal(t, "blue-item", gotBlue.ID)

	gotGreen, ok := tags.Set.Get("green")
	require.True(t, ok)
	require.Equal(t, "green-item", gotGreen.ID)
}

func TestThreeWayMergeSchemaMismatchReturnsMineUnchanged(t *testing.T) {
	t.Parallel()

	base := newRoot("mismatch-base")
	mine := newRoot("mismatch-base")
	other := testSchema("mismatch-other")
	their := docmodel.New(other, "root", nil)

	merged, conflicts, err := treemerge.ThreeWayMerge(base, mine, their)
	require.Error(t, err)
	require.ErrorIs(t, err, docerr.ErrSchemaMismatch)
	require.Empty(t, conflicts)
	require.Same(t, mine, merged)
}
