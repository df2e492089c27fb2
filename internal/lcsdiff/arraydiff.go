// Package lcsdiff implements the array-diff core shared by string-like and
// array-like scalar fields and by ordered child-link reconciliation
// (component E, spec.md §4.5). Matching is first-match, not a longest
// common subsequence: spec.md §4.5 step 1 mandates "for each base element,
// find its first match in later", which a classic LCS (Hunt-McIlroy or
// textbook DP) does not generally reproduce once duplicates are present —
// LCS picks whichever subsequence is longest overall, not whichever match
// a scan hits first.
package lcsdiff

// WasTouchedFunc lets a caller flag a base element as already structurally
// significant even though it matched exactly — used by the tree merge
// engine to keep elements on an edited path from looking untouched. A
// touched-but-otherwise-kept element is still reported with StatusKept;
// callers that need the distinction inspect the predicate themselves. Diff
// only uses it, when supplied, to decide whether an element that happens to
// land back in its original slot should still be treated as "touched" for
// downstream bookkeeping (exposed via Touched on ElementChange).
type WasTouchedFunc[T any] func(T) bool

// Options configures DiffArray.
type Options[T any] struct {
	WasTouched WasTouchedFunc[T]
}

// EqualFunc reports whether two elements match.
type EqualFunc[T any] func(a, b T) bool

// DiffArray computes the operations that transform base into later under
// eq, plus one ElementChange per base element (spec.md §4.5).
func DiffArray[T any](base, later []T, eq EqualFunc[T], opts ...Options[T]) ([]Op, []ElementChange) {
	var wasTouched WasTouchedFunc[T]
	if len(opts) > 0 {
		wasTouched = opts[0].WasTouched
	}

	n := len(base)
	claimed := make([]bool, len(later))
	matchOfBase := make([]int, n)
	for i := range matchOfBase {
		matchOfBase[i] = -1
	}
	for i, b := range base {
		for j, l := range later {
			if claimed[j] {
				continue
			}
			if eq(b, l) {
				matchOfBase[i] = j
				claimed[j] = true
				break
			}
		}
	}

	changes := make([]ElementChange, n)
	var ops []Op
	var keptBase []int
	for i := 0; i < n; i++ {
		if matchOfBase[i] == -1 {
			changes[i] = ElementChange{Status: StatusDeleted}
			ops = append(ops, Op{Kind: OpDelete, ElIndex: i})
			continue
		}
		touched := wasTouched != nil && wasTouched(base[i])
		changes[i] = ElementChange{Status: StatusKept, Touched: touched}
		ops = append(ops, Op{Kind: OpKeep, ElIndex: i})
		keptBase = append(keptBase, i)
	}

	// Step 2: reorder kept elements.
	matchedLater := make([]int, len(keptBase))
	for k, i := range keptBase {
		matchedLater[k] = matchOfBase[i]
	}
	sortedLater := append([]int(nil), matchedLater...)
	insertionSort(sortedLater)
	rankOf := make(map[int]int, len(sortedLater))
	for rank, laterIdx := range sortedLater {
		rankOf[laterIdx] = rank
	}

	items := make([]keptItem, len(keptBase))
	for k, i := range keptBase {
		items[k] = keptItem{baseIndex: i, rank: rankOf[matchOfBase[i]]}
	}

	reorderOps, moved := reorderKept(items)
	ops = append(ops, reorderOps...)
	for i := range moved {
		changes[i] = ElementChange{Status: StatusMoved, Touched: changes[i].Touched}
	}

	// Step 3: insertions, anchored to the last Kept/Added predecessor.
	matchedBy := make(map[int]int, len(keptBase))
	for _, i := range keptBase {
		matchedBy[matchOfBase[i]] = i
	}
	var lastAnchor *Token
	addIdx := 0
	for j, v := range later {
		if baseIdx, ok := matchedBy[j]; ok {
			t := BaseToken(baseIdx)
			lastAnchor = &t
			continue
		}
		ops = append(ops, Op{Kind: OpAdd, Anchor: lastAnchor, Value: v})
		t := AddedToken(addIdx)
		lastAnchor = &t
		addIdx++
	}

	return ops, changes
}

type keptItem struct {
	baseIndex int
	rank      int
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// reorderKept sorts items (already in current/base order) into rank order
// using the two-ends selection rule from spec.md §4.5, returning the
// MoveLeft/MoveRight ops and the set of base indices that actually moved.
func reorderKept(items []keptItem) ([]Op, map[int]bool) {
	arr := append([]keptItem(nil), items...)
	moved := map[int]bool{}
	var ops []Op

	for {
		lo, hi := -1, -1
		for i, it := range arr {
			if it.rank != i {
				if lo == -1 {
					lo = i
				}
				hi = i
			}
		}
		if lo == -1 || lo == hi {
			break
		}

		leftDist := abs(arr[lo].rank - lo)
		rightDist := abs(arr[hi].rank - hi)

		if rightDist >= leftDist {
			elem := arr[hi]
			without := without(arr, hi)
			dest := elem.rank
			var anchor *Token
			if dest > 0 {
				t := BaseToken(without[dest-1].baseIndex)
				anchor = &t
			}
			ops = append(ops, Op{Kind: OpMoveLeft, ElIndex: elem.baseIndex, Anchor: anchor, Delta: rightDist})
			moved[elem.baseIndex] = true
			arr = insertAt(without, dest, elem)
		} else {
			elem := arr[lo]
			rest := without(arr, lo)
			dest := elem.rank
			var anchor *Token
			if dest < len(rest) {
				t := BaseToken(rest[dest].baseIndex)
				anchor = &t
			}
			ops = append(ops, Op{Kind: OpMoveRight, ElIndex: elem.baseIndex, Anchor: anchor, Delta: leftDist})
			moved[elem.baseIndex] = true
			arr = insertAt(rest, dest, elem)
		}
	}
	return ops, moved
}

func without(arr []keptItem, idx int) []keptItem {
	out := make([]keptItem, 0, len(arr)-1)
	out = append(out, arr[:idx]...)
	out = append(out, arr[idx+1:]...)
	return out
}

func insertAt(arr []keptItem, idx int, item keptItem) []keptItem {
	out := make([]keptItem, 0, len(arr)+1)
	out = append(out, arr[:idx]...)
	out = append(out, item)
	out = append(out, arr[idx:]...)
	return out
}

// insertionSort sorts a small int slice ascending without importing sort,
// keeping this package's hot path allocation-free for the small slices
// typical of a sibling group.
func insertionSort(s []int) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
