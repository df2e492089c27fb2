package arraymerge_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/internal/arraymerge"
)

func eqString(a, b string) bool { return a == b }

func TestThreeWayMergeIdentity(t *testing.T) {
	t.Parallel()

	base := []string{"a", "b", "c"}
	merged, dropped := arraymerge.ThreeWayMerge(base, base, base, eqString)
	require.False(t, dropped)
	if diff := cmp.Diff(base, merged); diff != "" {
		t.Fatalf("identity merge changed base (-want +got):\n%s", diff)
	}
}

func TestThreeWayMergeParallelNonConflicting(t *testing.T) {
	t.Parallel()

	// scenario 1: mine appends at the end, their reorders the front —
	// neither touches the same element, so both edits should survive.
	base := []string{"a", "b", "c"}
	mine := []string{"a", "b", "c", "d"}
	their := []string{"b", "a", "c"}

	merged, dropped := arraymerge.ThreeWayMerge(base, mine, their, eqString)
	require.False(t, dropped)

	require.Contains(t, merged, "d")
	require.Less(t, indexOf(merged, "b"), indexOf(merged, "a"))
}

func TestThreeWayMergeConflictingMoves(t *testing.T) {
	t.Parallel()

	// scenario 2: mine moves "c" to the front, their moves "c" to the end.
	// Only one can win; the merge must not silently apply both, and it
	// must report the drop.
	base := []string{"a", "b", "c", "d", "e"}
	mine := []string{"c", "a", "b", "d", "e"}
	their := []string{"a", "b", "d", "e", "c"}

	merged, dropped := arraymerge.ThreeWayMerge(base, mine, their, eqString)
	require.Len(t, merged, 5)
	require.ElementsMatch(t, base, merged)
	require.True(t, dropped)
}

func TestThreeWayMergeSameDirectionMoveLargerDeltaWins(t *testing.T) {
	t.Parallel()

	base := []string{"a", "b", "c", "d", "e"}
	mine := []string{"e", "a", "b", "c", "d"}  // "e" moved left by 4
	their := []string{"a", "e", "b", "c", "d"} // "e" moved left by 3

	merged, dropped := arraymerge.ThreeWayMerge(base, mine, their, eqString)
	require.True(t, dropped)
	require.Equal(t, "e", merged[0], "the larger-delta move should win")
}

func TestThreeWayMergeDeleteLosesToUntouchedElement(t *testing.T) {
	t.Parallel()

	base := []string{"a", "b", "c"}
	mine := []string{"a", "c"} // mine deletes "b"
	their := []string{"a", "b", "c"}

	merged, dropped := arraymerge.ThreeWayMerge(base, mine, their, eqString)
	require.True(t, dropped)
	require.Contains(t, merged, "b")
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
