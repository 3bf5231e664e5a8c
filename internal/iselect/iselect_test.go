package iselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/oir"
	"nanoc/internal/types"
)

func i32() *types.Type  { return types.Basic(types.I32, false) }
func u32t() *types.Type { return types.Basic(types.U32, false) }

func TestSelectBinaryOp(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	c := oir.NewVariable(2, "c", i32(), false)
	dst := oir.NewVariable(3, "dst", i32(), false)
	instr := oir.EmitBinaryOp(dst, a, c, oir.OpAdd)
	blk.AddStatement(instr)

	Select(fn)
	assert.Equal(t, "addl", instr.InstrType)
	assert.Equal(t, "c", instr.SrcReg)
	assert.Equal(t, "dst", instr.DstReg)
}

func TestSelectSignedDivExpandsToSequence(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	bv := oir.NewVariable(2, "b", i32(), false)
	dst := oir.NewVariable(3, "dst", i32(), false)
	blk.AddStatement(oir.EmitBinaryOp(dst, a, bv, oir.OpDiv))
	blk.AddStatement(oir.EmitReturn(dst))

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 4) // cdq, idivl, writeback movl, ret
	assert.Equal(t, "cdq", instrs[0].InstrType)
	assert.Equal(t, "idivl", instrs[1].InstrType)
	assert.Equal(t, "rax", instrs[1].DstReg)
	assert.Equal(t, "movl", instrs[2].InstrType)
	assert.Equal(t, "rax", instrs[2].SrcReg)
	assert.True(t, instrs[2].CannotCombine)
	assert.Equal(t, "ret", instrs[3].InstrType)
}

func TestSelectUnsignedModUsesRemainderSide(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", u32t(), false)
	bv := oir.NewVariable(2, "b", u32t(), false)
	dst := oir.NewVariable(3, "dst", u32t(), false)
	blk.AddStatement(oir.EmitBinaryOp(dst, a, bv, oir.OpMod))

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 3)
	assert.Equal(t, "divl", instrs[1].InstrType)
	assert.Equal(t, "rdx", instrs[1].DstReg)
	assert.Equal(t, "rdx", instrs[2].SrcReg)
}

func TestSelectUnsignedMulStagesRAX(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", u32t(), false)
	bv := oir.NewVariable(2, "b", u32t(), false)
	dst := oir.NewVariable(3, "x", u32t(), false)
	blk.AddStatement(oir.EmitBinaryOp(dst, a, bv, oir.OpMul))

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 3)
	assert.Equal(t, "movl", instrs[0].InstrType)
	assert.Equal(t, "rax", instrs[0].DstReg)
	assert.Equal(t, "mull", instrs[1].InstrType)
	assert.Equal(t, "rdx:rax", instrs[1].DstReg)
	assert.Equal(t, "movl", instrs[2].InstrType)
	assert.Equal(t, "x", instrs[2].DstReg)
	assert.True(t, instrs[2].CannotCombine)
}

func TestSelectBranchUsesConditionSuffix(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	other := oir.NewBlock(1, fn)
	fn.Entry = blk
	blk.DirectSuccessor = other
	a := oir.NewVariable(1, "a", i32(), false)
	c := oir.NewVariable(2, "c", i32(), false)
	instr := oir.EmitBranch(oir.BrGE, a, c, other, other)
	blk.AddStatement(instr)

	Select(fn)
	assert.Equal(t, "cmpl+jge", instr.InstrType)
}

func TestSelectBranchEmitsJumpWhenElseIsNotFallThrough(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	thenBlk := oir.NewBlock(1, fn)
	elseBlk := oir.NewBlock(2, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	c := oir.NewVariable(2, "c", i32(), false)
	blk.AddStatement(oir.EmitBranch(oir.BrE, a, c, thenBlk, elseBlk))

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, "cmpl+je", instrs[0].InstrType)
	require.Equal(t, oir.StmtJump, instrs[1].Kind)
	assert.Equal(t, "jmp", instrs[1].InstrType)
	assert.Same(t, elseBlk, instrs[1].Then)
}

func TestSelectBranchSkipsJumpWhenElseIsDirectSuccessor(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	thenBlk := oir.NewBlock(1, fn)
	elseBlk := oir.NewBlock(2, fn)
	fn.Entry = blk
	blk.DirectSuccessor = elseBlk
	a := oir.NewVariable(1, "a", i32(), false)
	c := oir.NewVariable(2, "c", i32(), false)
	blk.AddStatement(oir.EmitBranch(oir.BrE, a, c, thenBlk, elseBlk))

	Select(fn)
	require.Len(t, blk.Instructions(), 1)
}

func TestSelectShiftCountParameterStagedThroughFreshTemporary(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", u32t(), false)
	count := oir.NewVariable(2, "n", u32t(), false)
	count.ParamIndex = 2
	fn.Params = append(fn.Params, count)
	dst := oir.NewVariable(3, "dst", u32t(), false)
	shift := oir.EmitBinaryOp(dst, a, count, oir.OpShl)
	blk.AddStatement(shift)

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, "movb", instrs[0].InstrType)
	assert.Equal(t, "n", instrs[0].SrcReg)
	assert.Equal(t, "shll", shift.InstrType)
	assert.NotSame(t, count, shift.Op2)
	assert.Equal(t, "n.cl", shift.Op2.Name)
}

func TestSelectSignedShiftUsesArithmeticForm(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	dst := oir.NewVariable(2, "dst", i32(), false)
	instr := oir.EmitBinaryOpWithConst(dst, a, oir.OpShr, oir.IntConstant(oir.ConstI32, 2))
	blk.AddStatement(instr)

	Select(fn)
	assert.Equal(t, "sarl", instr.InstrType)
}

func TestSelectLogicalAndExpandsToTestSetCombine(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	bv := oir.NewVariable(2, "b", i32(), false)
	dst := oir.NewVariable(3, "dst", i32(), false)
	instr := oir.EmitBinaryOp(dst, a, bv, oir.OpLogicalAnd)
	blk.AddStatement(instr)

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 6)
	assert.Equal(t, "testl", instrs[0].InstrType)
	assert.Equal(t, "setne", instrs[1].InstrType)
	assert.Equal(t, "testl", instrs[2].InstrType)
	assert.Equal(t, "setne", instrs[3].InstrType)
	assert.Equal(t, "andb", instrs[4].InstrType)
	assert.Equal(t, "movzbl", instrs[5].InstrType)
	assert.True(t, instrs[5].CannotCombine)
	assert.Equal(t, "dst", instrs[5].DstReg)
}

func TestSelectIndirectJumpWidensNarrowIndex(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	idx := oir.NewVariable(1, "idx", types.Basic(types.U8, false), false)
	instr := &oir.Instruction{Kind: oir.StmtIndirectJump, Op1: idx, IsBranchEnding: true}
	blk.AddStatement(instr)

	Select(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, "movzbl", instrs[0].InstrType)
	assert.Equal(t, "idx", instrs[0].SrcReg)
	assert.Equal(t, "idx.idx", instr.Op1.Name)
}

func TestSelectLoadStoreSizeSuffixFollowsOperand(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	base := oir.NewVariable(1, "base", types.PointerTo(i32(), false), false)
	v8 := oir.NewVariable(2, "v", types.Basic(types.I64, false), false)
	store := oir.EmitStore(base, v8)
	blk.AddStatement(store)

	Select(fn)
	assert.Equal(t, "movq", store.InstrType)
	assert.Equal(t, "[base]", store.DstReg)
}
