package regalloc

import (
	"nanoc/internal/cctx"
	"nanoc/internal/oir"
)

// maxRounds bounds the build-coalesce-color-spill loop: each round
// either finishes with zero spills or strictly shrinks the set of
// variables still competing for a register (every spilled variable is
// replaced by reload/store temporaries with much shorter live ranges),
// so in practice this converges in one or two rounds per function; the
// cap only guards against a coloring bug turning into an infinite loop.
const maxRounds = 64

// Allocate is the component-L entry point: build the interference
// graph from fn's SSA live ranges, coalesce away the copies it is safe
// to, color with the x86-64 general-purpose file, spill and retry
// when coloring gets stuck, and finally substitute every instruction's
// selected-form placeholder text with the register or stack slot each
// variable ended up with. It returns the final,
// fully-colored graph plus the total number of live ranges spilled to
// the stack across every round, for -s reporting.
func Allocate(ctx *cctx.Context, fn *oir.Function) (*Graph, int) {
	var g *Graph
	spilledTotal := 0
	for round := 0; round < maxRounds; round++ {
		oir.RecountUses(fn)
		g = BuildInterferenceGraph(ctx, fn)
		Coalesce(g, fn)
		CleanupCopies(fn)

		result := Color(g)
		if len(result.Spilled) == 0 {
			break
		}
		spilledTotal += len(result.Spilled)
		Spill(ctx, fn, result.Spilled)
	}
	Substitute(fn)
	return g, spilledTotal
}
