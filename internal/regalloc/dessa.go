package regalloc

import "nanoc/internal/oir"

// DestructSSA replaces every phi with explicit copies at the end of
// the phi's predecessor blocks, immediately before each predecessor's
// terminator — the classical out-of-SSA translation that sets up
// Coalesce to fold the copies back into shared live ranges. The
// copies that survive coalescing are real register moves the selector
// has already given a mov form.
func DestructSSA(fn *oir.Function) {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Kind != oir.StmtPhi {
				continue
			}
			for i, pred := range blk.Preds {
				if i >= len(instr.Args) || instr.Args[i] == nil {
					continue
				}
				src := instr.Args[i]
				if src == instr.Assignee {
					continue
				}
				cp := oir.EmitAssign(instr.Assignee, src)
				if exit := pred.Exit(); exit != nil && exit.IsBranchEnding {
					pred.InsertInstructionBefore(exit, cp)
				} else {
					pred.AddStatement(cp)
				}
			}
			blk.DeleteStatement(instr)
		}
	}
}
