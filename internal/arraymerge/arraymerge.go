// Package arraymerge implements the three-way array merge (component F,
// spec.md §4.7): diff both derived sequences against the base, filter each
// side's operations against the other's, and replay the result.
package arraymerge

import "github.com/mibar/hierdoc/internal/lcsdiff"

// ThreeWayMerge merges mine and their, both derived from base, under eq.
// dropped reports whether any side's move or delete was discarded because
// the opposite side's conflicting op on the same element won instead
// (spec.md §4.7 end: "conflict recorded if any side's edits were dropped").
func ThreeWayMerge[T any](base, mine, their []T, eq lcsdiff.EqualFunc[T]) (merged []T, dropped bool) {
	mineOps, _ := lcsdiff.DiffArray(base, mine, eq)
	theirOps, _ := lcsdiff.DiffArray(base, their, eq)

	mineActionable := actionable(mineOps)
	theirActionable := actionable(theirOps)

	mineByIndex := byIndex(mineActionable)
	theirByIndex := byIndex(theirActionable)

	filteredMine := filterSide(mineActionable, theirByIndex, true)
	filteredTheir := filterSide(theirActionable, mineByIndex, false)

	dropped = structuralCount(mineActionable) > structuralCount(filteredMine) ||
		structuralCount(theirActionable) > structuralCount(filteredTheir)

	combined := append(delayDeletions(filteredMine), delayDeletions(filteredTheir)...)
	combined = delayDeletions(combined)

	return lcsdiff.ApplyArrayDiff(base, combined), dropped
}

// structuralCount counts Move/Delete ops, excluding Add (which never drops).
func structuralCount(ops []lcsdiff.Op) int {
	n := 0
	for _, op := range ops {
		if op.Kind != lcsdiff.OpAdd {
			n++
		}
	}
	return n
}

// actionable drops Keep ops: they carry no information the merge needs and
// are no-ops for ApplyArrayDiff regardless of position.
func actionable(ops []lcsdiff.Op) []lcsdiff.Op {
	out := make([]lcsdiff.Op, 0, len(ops))
	for _, op := range ops {
		if op.Kind == lcsdiff.OpKeep {
			continue
		}
		out = append(out, op)
	}
	return out
}

// byIndex maps base index to its structural op on one side (Move or
// Delete). AddElement ops carry no base index and are absent from the map.
func byIndex(ops []lcsdiff.Op) map[int]lcsdiff.Op {
	m := make(map[int]lcsdiff.Op, len(ops))
	for _, op := range ops {
		if op.Kind == lcsdiff.OpAdd {
			continue
		}
		m[op.ElIndex] = op
	}
	return m
}

// filterSide applies the precedence table of spec.md §4.7 step 3 to one
// side's op list against the opposite side's per-index op map. isMine
// selects which side's own entry wins a magnitude tie.
func filterSide(ops []lcsdiff.Op, opposite map[int]lcsdiff.Op, isMine bool) []lcsdiff.Op {
	out := make([]lcsdiff.Op, 0, len(ops))
	for _, op := range ops {
		if op.Kind == lcsdiff.OpAdd {
			out = append(out, op) // AddElement always wins.
			continue
		}

		oppOp, hasOpp := opposite[op.ElIndex]
		if survives(op, oppOp, hasOpp, isMine) {
			out = append(out, op)
		}
	}
	return out
}

// survives decides whether op (from the side currently being filtered)
// should be kept, given the opposite side's op (if any) at the same index.
func survives(op lcsdiff.Op, oppOp lcsdiff.Op, hasOpp bool, isMine bool) bool {
	switch op.Kind {
	case lcsdiff.OpDelete:
		if !hasOpp {
			return false // "anything else" (an implicit, unedited keep) wins: don't delete.
		}
		switch oppOp.Kind {
		case lcsdiff.OpDelete:
			return true // both sides agree; either survives, apply is idempotent.
		default: // MoveLeft or MoveRight
			return false // the move survives the deletion.
		}

	case lcsdiff.OpMoveLeft:
		if !hasOpp {
			return true
		}
		switch oppOp.Kind {
		case lcsdiff.OpDelete:
			return true
		case lcsdiff.OpMoveLeft:
			return survivesMagnitude(op.Delta, oppOp.Delta, isMine)
		case lcsdiff.OpMoveRight:
			return true // MoveLeft beats MoveRight.
		}

	case lcsdiff.OpMoveRight:
		if !hasOpp {
			return true
		}
		switch oppOp.Kind {
		case lcsdiff.OpDelete:
			return true
		case lcsdiff.OpMoveRight:
			return survivesMagnitude(op.Delta, oppOp.Delta, isMine)
		case lcsdiff.OpMoveLeft:
			return false // MoveLeft beats MoveRight.
		}
	}
	return true
}

// survivesMagnitude picks the larger of two same-direction move deltas,
// with the side currently being filtered winning ties.
func survivesMagnitude(mine, their int, isMine bool) bool {
	if mine != their {
		return mine > their
	}
	return true // each side keeps its own op on an exact tie.
}

// delayDeletions reorders ops so that all moves come first, then
// deletions, then additions, preserving relative order within each
// category. This prevents an earlier deletion from shifting indices that a
// later move or add still addresses by original position.
func delayDeletions(ops []lcsdiff.Op) []lcsdiff.Op {
	var moves, deletes, adds []lcsdiff.Op
	for _, op := range ops {
		switch op.Kind {
		case lcsdiff.OpDelete:
			deletes = append(deletes, op)
		case lcsdiff.OpAdd:
			adds = append(adds, op)
		default:
			moves = append(moves, op)
		}
	}
	out := make([]lcsdiff.Op, 0, len(ops))
	out = append(out, moves...)
	out = append(out, deletes...)
	out = append(out, adds...)
	return out
}
