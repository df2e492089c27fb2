// Package textmerge implements the standalone three-way text merge that
// spec.md §4.6 delegates string scalar conflicts to: base, mine and their
// are split into whitespace-separated tokens, woven back together with the
// array three-way merge (component F), and rejoined with single spaces.
//
// Its contract, per spec.md §9, is stable output when all three inputs are
// equal, with conflicting regions reported rather than silently resolved.
package textmerge

import (
	"strings"

	"github.com/mibar/hierdoc/internal/arraymerge"
)

// Merge weaves base, mine and their at the token level. conflict reports
// whether any token-level edit from either side was dropped in favor of
// the other's conflicting edit.
func Merge(base, mine, their string) (merged string, conflict bool) {
	if mine == their {
		return mine, false
	}
	if base == mine {
		return their, false
	}
	if base == their {
		return mine, false
	}

	baseTokens := strings.Fields(base)
	mineTokens := strings.Fields(mine)
	theirTokens := strings.Fields(their)

	woven, dropped := arraymerge.ThreeWayMerge(baseTokens, mineTokens, theirTokens, func(a, b string) bool {
		return a == b
	})

	return strings.Join(woven, " "), dropped
}
