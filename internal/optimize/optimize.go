// Package optimize runs the classical SSA cleanup passes over a
// function's CFG once internal/cfg has built it: copy propagation,
// trivial-phi elimination, dead-code elimination, and unreachable
// block pruning. It iterates these to a fixed point before handing the
// function to the linearizer (internal/linearize); the peephole
// simplifier (internal/peephole) runs later still, on the
// already-linear instruction stream, and owns the constant-folding and
// strength-reduction rules — optimize only
// does what SSA shape makes cheap and exact.
package optimize

import "nanoc/internal/oir"

// hasSideEffect reports whether instr must be kept even if its
// assignee is never used: calls, stores, returns, branches, and
// inline assembly.
func hasSideEffect(instr *oir.Instruction) bool {
	switch instr.Kind {
	case oir.StmtCall, oir.StmtIndirectCall,
		oir.StmtStore, oir.StmtStoreConstOffset, oir.StmtStoreVarOffset,
		oir.StmtReturn, oir.StmtJump, oir.StmtBranch,
		oir.StmtIndirectJump, oir.StmtIndirectJumpAddrCalc,
		oir.StmtInlineAsm:
		return true
	}
	return false
}

// Run applies copy propagation, trivial-phi elimination, and dead-code
// elimination to a fixed point, then prunes blocks the CFG no longer
// reaches from the entry.
func Run(fn *oir.Function) {
	for {
		oir.RecountUses(fn)
		changed := propagateCopies(fn)
		changed = eliminateTrivialPhis(fn) || changed
		changed = eliminateDeadCode(fn) || changed
		if !changed {
			break
		}
	}
	pruneUnreachable(fn)
}

// replaceUses rewrites every operand across fn's instructions equal to
// old (by identity) with nv.
func replaceUses(fn *oir.Function, old, nv *oir.Variable) {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Op1 == old {
				instr.Op1 = nv
			}
			if instr.Op2 == old {
				instr.Op2 = nv
			}
			if instr.AddrReg1 == old {
				instr.AddrReg1 = nv
			}
			if instr.AddrReg2 == old {
				instr.AddrReg2 = nv
			}
			for i, a := range instr.Args {
				if a == old {
					instr.Args[i] = nv
				}
			}
		}
	}
}

// propagateCopies finds plain `dst <- src` instructions (StmtAssign)
// whose defining side has no other meaning, replaces every use of dst
// with src, and deletes the copy. Safe in SSA form: dst has exactly
// one definition, so every use dominated by it sees the same value.
func propagateCopies(fn *oir.Function) bool {
	changed := false
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Kind != oir.StmtAssign || instr.Assignee == nil || instr.Op1 == nil {
				continue
			}
			if instr.Assignee == instr.Op1 {
				continue
			}
			replaceUses(fn, instr.Assignee, instr.Op1)
			blk.DeleteStatement(instr)
			changed = true
		}
	}
	return changed
}

// eliminateTrivialPhis replaces a phi whose operands are all the same
// variable, or all either itself or one other variable, with that
// other variable directly (the minimal-SSA pruning Braun et al.
// describe as an alternative to a separate liveness-based pruning
// pass).
func eliminateTrivialPhis(fn *oir.Function) bool {
	changed := false
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Kind != oir.StmtPhi {
				continue
			}
			var same *oir.Variable
			trivial := true
			for _, arg := range instr.Args {
				if arg == nil || arg == instr.Assignee {
					continue
				}
				if same == nil {
					same = arg
					continue
				}
				if same != arg {
					trivial = false
					break
				}
			}
			if !trivial || same == nil {
				continue
			}
			replaceUses(fn, instr.Assignee, same)
			blk.DeleteStatement(instr)
			changed = true
		}
	}
	return changed
}

// eliminateDeadCode deletes instructions whose assignee is never used
// and which have no observable side effect.
func eliminateDeadCode(fn *oir.Function) bool {
	changed := false
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Assignee == nil || hasSideEffect(instr) {
				continue
			}
			if instr.Assignee.UseCount > 0 {
				continue
			}
			blk.DeleteStatement(instr)
			changed = true
		}
	}
	return changed
}

// pruneUnreachable removes blocks no longer reachable from fn.Entry —
// the residue of dead branches DCE or the front end itself can leave
// behind — and strips dangling predecessor/successor edges pointing at
// them.
func pruneUnreachable(fn *oir.Function) {
	if fn.Entry == nil {
		return
	}
	reachable := make(map[*oir.BasicBlock]bool)
	var walk func(*oir.BasicBlock)
	walk = func(b *oir.BasicBlock) {
		if reachable[b] {
			return
		}
		reachable[b] = true
		for _, s := range b.Succs {
			walk(s)
		}
	}
	walk(fn.Entry)

	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
			continue
		}
	}
	fn.Blocks = kept

	for _, b := range fn.Blocks {
		oldPreds := b.Preds
		var newPreds []*oir.BasicBlock
		for _, p := range oldPreds {
			if reachable[p] {
				newPreds = append(newPreds, p)
			}
		}
		if len(newPreds) != len(oldPreds) {
			for _, instr := range b.Instructions() {
				if instr.Kind != oir.StmtPhi {
					continue
				}
				newArgs := make([]*oir.Variable, 0, len(newPreds))
				for i, p := range oldPreds {
					if reachable[p] {
						newArgs = append(newArgs, instr.Args[i])
					}
				}
				instr.Args = newArgs
			}
		}
		b.Preds = newPreds
		b.Succs = filterReachable(b.Succs, reachable)
	}
}

func filterReachable(blocks []*oir.BasicBlock, reachable map[*oir.BasicBlock]bool) []*oir.BasicBlock {
	var out []*oir.BasicBlock
	for _, b := range blocks {
		if reachable[b] {
			out = append(out, b)
		}
	}
	return out
}
