package regalloc

import "nanoc/internal/oir"

// varSet is a small pointer-keyed set; the liveness fixed point and
// the interference construction that consumes it both want O(1)
// membership and insertion, so a map serves better here than
// internal/container's linear-scan Vector/PointerSet, which are sized
// for the handful-of-elements case the rest of the backend uses them
// for.
type varSet map[*oir.Variable]bool

func (s varSet) clone() varSet {
	out := make(varSet, len(s))
	for v := range s {
		out[v] = true
	}
	return out
}

func (s varSet) equals(other varSet) bool {
	if len(s) != len(other) {
		return false
	}
	for v := range s {
		if !other[v] {
			return false
		}
	}
	return true
}

// operandsOf returns the variables instr reads — every operand slot
// except Assignee. Phi arguments are paired with their predecessor
// block by computeLiveOut (through predIndex) instead, since a
// phi's uses are live at the end of the corresponding predecessor,
// not within the phi's own block.
func operandsOf(instr *oir.Instruction) []*oir.Variable {
	var out []*oir.Variable
	if instr.Kind == oir.StmtPhi {
		return out
	}
	if instr.Op1 != nil {
		out = append(out, instr.Op1)
	}
	if instr.Op2 != nil {
		out = append(out, instr.Op2)
	}
	if instr.AddrReg1 != nil {
		out = append(out, instr.AddrReg1)
	}
	if instr.AddrReg2 != nil {
		out = append(out, instr.AddrReg2)
	}
	out = append(out, instr.Args...)
	return out
}

// LiveOut holds the live-out set computed for every block of a
// function, keyed by block.
type LiveOut map[*oir.BasicBlock]varSet

// computeLiveOut runs the classical backward fixed-point liveness
// dataflow over fn's CFG: live-in(b) = use(b) ∪ (live-out(b) - def(b)),
// live-out(b) = ∪ live-in(s) for s in succ(b), with phi uses credited
// to the predecessor edge they flow along rather than to the phi's
// own block (Cytron et al.'s standard SSA liveness refinement).
func computeLiveOut(fn *oir.Function) LiveOut {
	liveIn := make(map[*oir.BasicBlock]varSet, len(fn.Blocks))
	liveOut := make(LiveOut, len(fn.Blocks))
	for _, b := range fn.Blocks {
		liveIn[b] = varSet{}
		liveOut[b] = varSet{}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range fn.Blocks {
			out := varSet{}
			for _, succ := range b.Succs {
				for v := range liveIn[succ] {
					out[v] = true
				}
				for _, instr := range succ.Instructions() {
					if instr.Kind != oir.StmtPhi {
						continue
					}
					predIdx := predIndex(succ, b)
					if predIdx >= 0 && predIdx < len(instr.Args) && instr.Args[predIdx] != nil {
						out[instr.Args[predIdx]] = true
					}
				}
			}

			in := out.clone()
			instrs := b.Instructions()
			for i := len(instrs) - 1; i >= 0; i-- {
				instr := instrs[i]
				if instr.Assignee != nil {
					delete(in, instr.Assignee)
				}
				for _, v := range operandsOf(instr) {
					in[v] = true
				}
			}

			if !liveOut[b].equals(out) {
				liveOut[b] = out
				changed = true
			}
			if !liveIn[b].equals(in) {
				liveIn[b] = in
				changed = true
			}
		}
	}
	return liveOut
}

func predIndex(b, pred *oir.BasicBlock) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}
