package regalloc

import (
	"nanoc/internal/cctx"
	"nanoc/internal/oir"
)

// isStackPointer reports whether v is one of the frame/stack-pointer
// sentinel variables address-calculation and spill instructions
// reference (named "sp" or "fp" by convention, e.g. the `t ← sp + 8`
// address-calc shape, and the spill-slot addressing
// internal/regalloc's own spill.go emits). RSP and RBP are fixed
// physical registers, never candidates for allocation; the pair
// never interferes with anything.
func isStackPointer(v *oir.Variable) bool {
	return v != nil && (v.Name == "sp" || v.Name == "fp")
}

// Graph is the interference graph: live ranges as
// nodes, a borrowed adjacency list per node (oir.LiveRange.Neighbors),
// plus a materialized adjacency matrix for O(1)
// DoLiveRangesInterfere once construction is finished.
type Graph struct {
	Ranges []*oir.LiveRange
	matrix []bool
	width  int
}

// BuildInterferenceGraph assigns every non-stack-pointer variable of
// fn its own live range, then walks each block backward from its
// live-out set, recording that a defining instruction's assignee
// interferes with everything live immediately after it.
func BuildInterferenceGraph(ctx *cctx.Context, fn *oir.Function) *Graph {
	liveOut := computeLiveOut(fn)
	g := &Graph{}

	ensureRange := func(v *oir.Variable) *oir.LiveRange {
		if v == nil || isStackPointer(v) {
			return nil
		}
		if v.LiveRange != nil {
			return v.LiveRange
		}
		lr := oir.NewLiveRange(ctx.NextLiveRangeID())
		lr.AddVariable(v)
		if v.IsParameter() {
			lr.ParamOrder = v.ParamIndex
		}
		g.Ranges = append(g.Ranges, lr)
		return lr
	}

	for _, v := range fn.Params {
		ensureRange(v)
	}

	for _, b := range fn.Blocks {
		live := liveOut[b].clone()
		instrs := b.Instructions()
		for i := len(instrs) - 1; i >= 0; i-- {
			instr := instrs[i]
			if instr.Assignee != nil && !isStackPointer(instr.Assignee) {
				def := ensureRange(instr.Assignee)
				for other := range live {
					if other == instr.Assignee || isStackPointer(other) {
						continue
					}
					interfere(def, ensureRange(other))
				}
				delete(live, instr.Assignee)
				def.SpillCost += spillWeight(instr, b)
			}
			for _, v := range operandsOf(instr) {
				if !isStackPointer(v) {
					ensureRange(v)
					live[v] = true
				}
			}
		}
	}

	g.finalize()
	return g
}

// spillWeight estimates how costly materializing this definition to
// memory would be: one unit for the definition plus one per use,
// scaled by the block's estimated
// execution frequency (the CFG builder stamps that from lexical
// nesting — x10 per enclosing loop). A zero frequency means the block
// was built outside the CFG builder and reads as 1.
func spillWeight(instr *oir.Instruction, b *oir.BasicBlock) float64 {
	if instr.Assignee == nil {
		return 0
	}
	freq := b.Frequency
	if freq == 0 {
		freq = 1
	}
	return (float64(instr.Assignee.UseCount) + 1) * float64(freq)
}

func interfere(a, b *oir.LiveRange) {
	if a == nil || b == nil || a == b {
		return
	}
	a.AddNeighbor(b)
	b.AddNeighbor(a)
}

// finalize assigns every surviving live range a matrix index and
// materializes the adjacency matrix, so DoLiveRangesInterfere becomes
// an O(1) lookup instead of an adjacency-list scan.
func (g *Graph) finalize() {
	g.width = len(g.Ranges)
	g.matrix = make([]bool, g.width*g.width)
	for i, lr := range g.Ranges {
		lr.MatrixIndex = i
	}
	for _, lr := range g.Ranges {
		for _, n := range lr.Neighbors {
			g.matrix[lr.MatrixIndex*g.width+n.MatrixIndex] = true
		}
	}
}

// DoLiveRangesInterfere reports whether a and b are recorded as
// interfering, via the materialized matrix. Both ranges must have
// been through finalize (i.e. returned by BuildInterferenceGraph or
// Coalesce on this same Graph).
func (g *Graph) DoLiveRangesInterfere(a, b *oir.LiveRange) bool {
	if a == b {
		return false
	}
	return g.matrix[a.MatrixIndex*g.width+b.MatrixIndex]
}

// removeRange drops lr from g.Ranges (used after a coalesce absorbs
// it). The matrix is not re-materialized here — Coalesce calls
// finalize again once all merges for this pass are done.
func (g *Graph) removeRange(lr *oir.LiveRange) {
	for i, r := range g.Ranges {
		if r == lr {
			g.Ranges = append(g.Ranges[:i], g.Ranges[i+1:]...)
			return
		}
	}
}
