package textmerge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mibar/hierdoc/internal/textmerge"
)

func TestMergeIdentity(t *testing.T) {
	t.Parallel()

	merged, conflict := textmerge.Merge("hello world", "hello world", "hello world")
	require.False(t, conflict)
	require.Equal(t, "hello world", merged)
}

func TestMergeOneSideUnchanged(t *testing.T) {
	t.Parallel()

	merged, conflict := textmerge.Merge("hello world", "hello world", "hello brave world")
	require.False(t, conflict)
	require.Equal(t, "hello brave world", merged)
}

func TestMergeNonOverlappingEdits(t *testing.T) {
	t.Parallel()

	base := "the quick fox"
	mine := "the quick brown fox"
	their := "the very quick fox"

	merged, _ := textmerge.Merge(base, mine, their)
	require.Contains(t, merged, "brown")
	require.Contains(t, merged, "very")
}

func TestMergeConflictingTokenEdits(t *testing.T) {
	t.Parallel()

	// mine deletes "b", their moves "b" to the front — a delete-vs-move
	// conflict, and the move always wins (spec.md §4.7's precedence table),
	// so mine's deletion is dropped and the merge reports a conflict.
	base := "a b c"
	mine := "a c"
	their := "b a c"

	merged, conflict := textmerge.Merge(base, mine, their)
	require.True(t, conflict)
	require.Contains(t, merged, "b")
}
