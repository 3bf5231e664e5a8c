package regalloc

import (
	"fmt"

	"nanoc/internal/cctx"
	"nanoc/internal/oir"
	"nanoc/internal/stackdata"
	"nanoc/internal/types"
)

// framePointer returns fn's shared frame-pointer sentinel variable,
// creating it on first use. Every spill load/store addresses through
// this one variable so isStackPointer can keep it out of the
// interference graph instead of treating a frame-relative address as
// a real register candidate.
func framePointer(fn *oir.Function) *oir.Variable {
	if fn.FramePointer == nil {
		fn.FramePointer = oir.NewVariable(0, "fp", nil, false)
	}
	return fn.FramePointer
}

// Spill materializes a stack region for every live range in spilled,
// then rewrites fn's instructions so that every read of a spilled
// variable is preceded by a reload into a fresh temporary and every
// write is followed by a store of the written variable to its region.
// The reload temporaries are new SSA variables (one definition each);
// afterwards the only read left of an original spilled variable is the
// store right after its definition, so its live range shrinks to that
// pair.
func Spill(ctx *cctx.Context, fn *oir.Function, spilled []*oir.LiveRange) {
	if len(spilled) == 0 {
		return
	}
	region := make(map[*oir.LiveRange]*stackdata.Region, len(spilled))
	for _, lr := range spilled {
		ty := representativeType(lr)
		var variableID uint64
		var variableName string
		if len(lr.Variables) > 0 {
			variableID, variableName = lr.Variables[0].ID, lr.Variables[0].Name
		}
		region[lr] = fn.Locals.CreateRegionForType(variableID, variableName, ty)
	}

	fp := framePointer(fn)
	spilledOf := func(v *oir.Variable) *oir.LiveRange {
		if v == nil || v.LiveRange == nil {
			return nil
		}
		if _, ok := region[v.LiveRange]; !ok {
			return nil
		}
		return v.LiveRange
	}

	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Kind == oir.StmtPhi {
				continue
			}
			rewriteOperand(ctx, blk, instr, fp, region, spilledOf, &instr.Op1)
			rewriteOperand(ctx, blk, instr, fp, region, spilledOf, &instr.Op2)
			rewriteOperand(ctx, blk, instr, fp, region, spilledOf, &instr.AddrReg1)
			rewriteOperand(ctx, blk, instr, fp, region, spilledOf, &instr.AddrReg2)
			for i := range instr.Args {
				rewriteOperand(ctx, blk, instr, fp, region, spilledOf, &instr.Args[i])
			}

			if lr := spilledOf(instr.Assignee); lr != nil {
				r := region[lr]
				store := oir.EmitStoreConstOffset(fp, oir.IntConstant(oir.ConstI64, int64(r.Offset)), instr.Assignee)
				store.InstrType = "mov"
				store.SrcReg = instr.Assignee.Name
				store.DstReg = slotText(fp, r.Offset)
				blk.InsertInstructionAfter(instr, store)
			}
		}
	}
	fn.Locals.Align()

	// Detach the spilled variables from their old (failed-to-color)
	// live ranges so a subsequent BuildInterferenceGraph call gives
	// them, and the reload/store temporaries just introduced, fresh
	// ranges built from the rewritten code instead of stale neighbor
	// data from this coloring attempt.
	for _, lr := range spilled {
		for _, v := range lr.Variables {
			v.LiveRange = nil
		}
	}
}

// rewriteOperand replaces *slot with a freshly reloaded temporary if
// it currently points at a spilled variable, inserting the reload
// immediately before instr.
func rewriteOperand(ctx *cctx.Context, blk *oir.BasicBlock, instr *oir.Instruction, fp *oir.Variable, region map[*oir.LiveRange]*stackdata.Region, spilledOf func(*oir.Variable) *oir.LiveRange, slot **oir.Variable) {
	lr := spilledOf(*slot)
	if lr == nil {
		return
	}
	r := region[lr]
	r.RecordRead()
	orig := *slot
	reload := oir.NewVariable(ctx.NextTempID(), orig.Name+".reload", orig.Type, true)
	load := oir.EmitLoadConstOffset(reload, fp, oir.IntConstant(oir.ConstI64, int64(r.Offset)))
	load.InstrType = "mov"
	load.SrcReg = slotText(fp, r.Offset)
	load.DstReg = reload.Name
	reload.Def = load
	blk.InsertInstructionBefore(instr, load)
	*slot = reload
}

// slotText is the bracketed effective-address text for a stack-region
// offset relative to the frame pointer, in the same "[base±offset]"
// convention internal/iselect uses for every other memory operand —
// internal/regalloc.Substitute later turns the "fp" token into "rbp".
func slotText(fp *oir.Variable, offset int) string {
	if offset == 0 {
		return "[" + fp.Name + "]"
	}
	return fmt.Sprintf("[%s-%d]", fp.Name, offset)
}

// representativeType returns the type the spill region should be
// sized to: every variable folded into one live range shares a type
// by construction (Coalesce never merges across a widening move), so
// the first variable
// stands in for the whole range. A live range with no variables at
// all (should not happen; defensive) falls back to a pointer-sized
// slot.
func representativeType(lr *oir.LiveRange) *types.Type {
	if len(lr.Variables) > 0 && lr.Variables[0].Type != nil {
		return lr.Variables[0].Type
	}
	return types.Basic(types.I64, false)
}
