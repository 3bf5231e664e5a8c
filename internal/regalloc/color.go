package regalloc

import "nanoc/internal/oir"

// Result is the outcome of one coloring attempt: the live ranges that
// still need a stack spill, in case a second interference-graph
// rebuild (after spill code insertion) is required.
type Result struct {
	Spilled []*oir.LiveRange
}

// Color runs Chaitin/Briggs simplify-then-select coloring over g:
// function-parameter live ranges are precolored to their ABI register
// and never pushed through simplification; everything else is pushed
// onto a stack in degree order (picking a highest-spill-cost-per-
// degree candidate whenever nothing has degree < K), then popped and
// assigned the lowest-numbered register not already taken by an
// already-colored neighbor. A range popped with no register left free
// is reported in Result.Spilled instead of being colored.
func Color(g *Graph) Result {
	precolorParams(g)

	degree := make(map[*oir.LiveRange]int, len(g.Ranges))
	removed := make(map[*oir.LiveRange]bool, len(g.Ranges))
	var worklist []*oir.LiveRange
	for _, lr := range g.Ranges {
		if lr.Register != "" {
			removed[lr] = true // precolored: treated as already resolved
			continue
		}
		degree[lr] = lr.Degree()
		worklist = append(worklist, lr)
	}

	var stack []*oir.LiveRange
	for len(worklist) > 0 {
		idx := selectSimplifiable(worklist, degree, removed)
		if idx < 0 {
			idx = selectSpillCandidate(worklist, degree)
		}
		lr := worklist[idx]
		worklist = append(worklist[:idx], worklist[idx+1:]...)
		removed[lr] = true
		stack = append(stack, lr)
		for _, n := range lr.Neighbors {
			if !removed[n] {
				degree[n]--
			}
		}
	}

	var spilled []*oir.LiveRange
	for i := len(stack) - 1; i >= 0; i-- {
		lr := stack[i]
		used := make(map[string]bool, lr.Degree())
		for _, n := range lr.Neighbors {
			if n.Register != "" {
				used[n.Register] = true
			}
		}
		reg := firstFree(used)
		if reg == "" {
			spilled = append(spilled, lr)
			continue
		}
		lr.Register = reg
	}
	return Result{Spilled: spilled}
}

// precolorParams assigns every parameter live range its fixed ABI
// register up front, so neighbor lookups during simplify/select see a
// real Register value instead of "".
func precolorParams(g *Graph) {
	for _, lr := range g.Ranges {
		if lr.Register == "" && lr.ParamOrder > 0 {
			if reg := ParamRegister(lr.ParamOrder); reg != "" {
				lr.Register = reg
			}
		}
	}
}

// selectSimplifiable returns the worklist index of any remaining node
// with degree < K, or -1 if none qualifies.
func selectSimplifiable(worklist []*oir.LiveRange, degree map[*oir.LiveRange]int, removed map[*oir.LiveRange]bool) int {
	for i, lr := range worklist {
		if degree[lr] < K {
			return i
		}
	}
	return -1
}

// selectSpillCandidate picks the worklist entry with the highest
// spill-cost-to-degree ratio, counting a zero degree as one; ties go
// to the earliest entry.
func selectSpillCandidate(worklist []*oir.LiveRange, degree map[*oir.LiveRange]int) int {
	best := 0
	bestRatio := -1.0
	for i, lr := range worklist {
		d := degree[lr]
		if d == 0 {
			d = 1
		}
		ratio := lr.SpillCost / float64(d)
		if ratio > bestRatio {
			bestRatio = ratio
			best = i
		}
	}
	return best
}

func firstFree(used map[string]bool) string {
	for _, reg := range GPRegisters {
		if !used[reg] {
			return reg
		}
	}
	return ""
}
