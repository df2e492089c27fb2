// Package scalarmerge implements the three-way scalar field merge used by
// the tree merge engine (spec.md §4.6): booleans, numbers, strings, arrays,
// dates and everything else each get their own conflict-resolution rule
// once a simple two-of-three equality check fails to settle the field.
package scalarmerge

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mibar/hierdoc/internal/arraymerge"
	"github.com/mibar/hierdoc/internal/schema"
	"github.com/mibar/hierdoc/internal/textmerge"
)

// Status is a conflict's resolution state. Every conflict this package
// produces is open; nothing in the merge engine ever closes one.
type Status string

// StatusOpen is the only status scalarmerge ever assigns.
const StatusOpen Status = "open"

// Conflict records a field whose base/mine/their values could not be
// resolved without a pick.
type Conflict struct {
	Base        any
	Mine, Their any
	Merged      any
	Status      Status
}

// Merge resolves one scalar field's three-way values under typ, the
// field's declared schema.ScalarType. It returns the merged value and,
// when the two sides genuinely disagreed, a non-nil Conflict.
func Merge(typ schema.ScalarType, base, mine, their any) (any, *Conflict) {
	if equal(mine, their) {
		return mine, nil
	}
	if equal(base, mine) {
		return their, nil
	}
	if equal(base, their) {
		return mine, nil
	}

	merged, conflicted := mergeConflicting(typ, base, mine, their)
	if !conflicted {
		return merged, nil
	}
	return merged, &Conflict{Base: base, Mine: mine, Their: their, Merged: merged, Status: StatusOpen}
}

func mergeConflicting(typ schema.ScalarType, base, mine, their any) (merged any, conflict bool) {
	switch typ {
	case schema.ScalarBool:
		return mine, true

	case schema.ScalarNumber:
		return mergeNumber(toFloat(base), toFloat(mine), toFloat(their)), true

	case schema.ScalarDate:
		return mergeDate(base, mine, their)

	case schema.ScalarString:
		s, conflicted := textmerge.Merge(anyToString(base), anyToString(mine), anyToString(their))
		if !conflicted {
			return s, false
		}
		if anyToString(mine) <= anyToString(their) {
			return mine, true
		}
		return their, true

	case schema.ScalarArray:
		b := toSlice(base)
		m := toSlice(mine)
		t := toSlice(their)
		merged, dropped := arraymerge.ThreeWayMerge(b, m, t, func(a, c any) bool { return equal(a, c) })
		return merged, dropped

	default:
		if fmt.Sprint(mine) <= fmt.Sprint(their) {
			return mine, true
		}
		return their, true
	}
}

// mergeNumber picks the value farther from base, per spec.md §9's
// correction of the source's bug (both diffs there were computed against
// the same operand, making the comparison always trivially equal).
func mergeNumber(base, mine, their float64) float64 {
	mineDiff := abs(mine - base)
	theirDiff := abs(their - base)
	if mineDiff > theirDiff {
		return mine
	}
	if theirDiff > mineDiff {
		return their
	}
	if mine <= their {
		return mine
	}
	return their
}

func mergeDate(base, mine, their any) (any, bool) {
	baseMS, mineMS, theirMS := epochMillis(base), epochMillis(mine), epochMillis(their)
	merged := mergeNumber(float64(baseMS), float64(mineMS), float64(theirMS))
	if int64(merged) == mineMS {
		return mine, true
	}
	return their, true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func equal(a, b any) bool {
	if t, ok := a.(time.Time); ok {
		if u, ok := b.(time.Time); ok {
			return t.Equal(u)
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func epochMillis(v any) int64 {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli()
	default:
		return int64(toFloat(v))
	}
}

func anyToString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case nil:
		return nil
	default:
		return []any{s}
	}
}
