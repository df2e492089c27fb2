package scalarmerge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/internal/scalarmerge"
	"github.com/mibar/hierdoc/internal/schema"
)

func TestMergeBothSidesAgree(t *testing.T) {
	t.Parallel()

	merged, conflict := scalarmerge.Merge(schema.ScalarString, "base", "same", "same")
	require.Nil(t, conflict)
	require.Equal(t, "same", merged)
}

func TestMergeOneSideUnchanged(t *testing.T) {
	t.Parallel()

	merged, conflict := scalarmerge.Merge(schema.ScalarNumber, float64(1), float64(1), float64(2))
	require.Nil(t, conflict)
	require.Equal(t, float64(2), merged)
}

func TestMergeNumberFartherFromBaseWins(t *testing.T) {
	t.Parallel()

	// mine moved from 10 to 12 (delta 2), their moved from 10 to 20 (delta
	// 10); their's edit is farther from base and should win (spec.md §9's
	// correction of the farther-from-base rule).
	merged, conflict := scalarmerge.Merge(schema.ScalarNumber, float64(10), float64(12), float64(20))
	require.NotNil(t, conflict)
	require.Equal(t, float64(20), merged)
}

func TestMergeBoolAlwaysConflictsPickingMine(t *testing.T) {
	t.Parallel()

	merged, conflict := scalarmerge.Merge(schema.ScalarBool, false, true, false)
	require.NotNil(t, conflict)
	require.Equal(t, true, merged)
}

func TestMergeStringNonOverlappingEditsResolveWithoutConflict(t *testing.T) {
	t.Parallel()

	merged, conflict := scalarmerge.Merge(schema.ScalarString, "the fox", "the quick fox", "the fox jumps")
	require.Nil(t, conflict)
	require.Contains(t, merged, "quick")
	require.Contains(t, merged, "jumps")
}

func TestMergeArrayDelegatesToArrayMerge(t *testing.T) {
	t.Parallel()

	base := []any{"a", "b"}
	mine := []any{"a", "b", "c"}
	their := []any{"z", "a", "b"}

	merged, conflict := scalarmerge.Merge(schema.ScalarArray, base, mine, their)
	require.Nil(t, conflict)
	require.Equal(t, []any{"z", "a", "b", "c"}, merged)
}
