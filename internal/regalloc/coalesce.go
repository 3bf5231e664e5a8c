package regalloc

import "nanoc/internal/oir"

// Coalesce merges live ranges connected by a non-interfering,
// non-widening copy `a ← b`, applying a conservative (Briggs) safety check: the
// merged node is only folded if it would have fewer than K neighbors
// of degree ≥ K once merged, since those are the only neighbors that
// could possibly fail to get a color during simplification. It
// repeats over fn's blocks until a pass coalesces nothing, then
// re-finalizes g's adjacency matrix to reflect the merges.
func Coalesce(g *Graph, fn *oir.Function) {
	for {
		merged := false
		for _, blk := range fn.Blocks {
			for _, instr := range blk.Instructions() {
				if instr.Kind != oir.StmtAssign || instr.Assignee == nil || instr.Op1 == nil {
					continue
				}
				a, b := instr.Assignee.LiveRange, instr.Op1.LiveRange
				if a == nil || b == nil || a == b {
					continue
				}
				if at, bt := instr.Assignee.Type, instr.Op1.Type; at != nil && bt != nil && at.Size() > bt.Size() {
					continue // widening move: the two sides keep separate ranges
				}
				if g.DoLiveRangesInterfere(a, b) {
					continue
				}
				if !conservative(a, b) {
					continue
				}
				mergeInto(a, b)
				g.removeRange(b)
				merged = true
			}
		}
		if !merged {
			break
		}
		g.finalize()
	}
}

// conservative is the Briggs test: merging a and b is always safe to
// color if the combined node has fewer than K neighbors whose own
// degree is ≥ K (a node with fewer such neighbors is guaranteed to
// still simplify, regardless of how those neighbors eventually
// color). Shared neighbors are counted once.
func conservative(a, b *oir.LiveRange) bool {
	seen := make(map[*oir.LiveRange]bool, a.Degree()+b.Degree())
	highDegree := 0
	count := func(lr *oir.LiveRange) {
		for _, n := range lr.Neighbors {
			if n == a || n == b || seen[n] {
				continue
			}
			seen[n] = true
			degree := n.Degree()
			if n == a || n == b {
				degree--
			}
			if degree >= K {
				highDegree++
			}
		}
	}
	count(a)
	count(b)
	return highDegree < K
}

// mergeInto folds coalescee into target: target.Variables absorbs
// coalescee's (repointing each Variable.LiveRange), every neighbor of
// coalescee becomes a neighbor of target instead (with the
// coalescee-to-neighbor edge removed), target adopts coalescee's
// register and parameter order wherever target itself had none yet,
// and coalescee's spill cost and assignment count (plus one for the
// folded copy) are added to target's own.
func mergeInto(target, coalescee *oir.LiveRange) {
	for _, v := range coalescee.Variables {
		v.LiveRange = target
	}
	target.Variables = append(target.Variables, coalescee.Variables...)

	for _, n := range coalescee.Neighbors {
		n.RemoveNeighbor(coalescee)
		if n != target {
			target.AddNeighbor(n)
			n.AddNeighbor(target)
		}
	}
	coalescee.Neighbors = nil

	if target.Register == "" {
		target.Register = coalescee.Register
	}
	if target.ParamOrder == 0 {
		target.ParamOrder = coalescee.ParamOrder
	}
	target.SpillCost += coalescee.SpillCost
	target.AssignmentCount += coalescee.AssignmentCount + 1
}

// CleanupCopies deletes every `a ← b` instruction whose assignee and
// operand now share one live range post-coalesce.
func CleanupCopies(fn *oir.Function) {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Kind != oir.StmtAssign || instr.Assignee == nil || instr.Op1 == nil {
				continue
			}
			if instr.Assignee.LiveRange == nil || instr.Assignee.LiveRange != instr.Op1.LiveRange {
				continue
			}
			blk.DeleteStatement(instr)
		}
	}
}
