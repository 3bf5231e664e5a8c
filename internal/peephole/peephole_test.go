package peephole

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/oir"
	"nanoc/internal/types"
)

func i32() *types.Type { return types.Basic(types.I32, false) }
func u32() *types.Type { return types.Basic(types.U32, false) }

func TestFoldConstIntoBinary(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	t0 := oir.NewVariable(2, "t0", i32(), true)
	dst := oir.NewVariable(3, "dst", i32(), false)
	t0.UseCount = 1

	constInstr := oir.EmitAssignConst(t0, oir.IntConstant(oir.ConstI32, 4))
	binInstr := oir.EmitBinaryOp(dst, a, t0, oir.OpAdd)
	blk.AddStatement(constInstr)
	blk.AddStatement(binInstr)
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, oir.StmtBinaryOpWithConst, instrs[0].Kind)
	assert.Same(t, a, instrs[0].Op1)
	assert.EqualValues(t, 4, instrs[0].Op2OffsetConst.AsInt64())
}

func TestSelfAssignmentDeleted(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	blk.AddStatement(oir.EmitAssign(a, a))
	blk.AddStatement(oir.EmitReturn(a))

	Run(fn)
	assert.Len(t, blk.Instructions(), 1)
}

func TestPowerOfTwoMultiplyBecomesShift(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", i32(), false)
	dst := oir.NewVariable(2, "dst", i32(), false)
	instr := oir.EmitBinaryOpWithConst(dst, a, oir.OpMul, oir.IntConstant(oir.ConstI32, 8))
	blk.AddStatement(instr)
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)
	assert.Equal(t, oir.OpShl, instr.Op)
	assert.EqualValues(t, 3, instr.Op2OffsetConst.AsInt64())
}

func TestUnsignedDivPowerOfTwoBecomesShift(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	a := oir.NewVariable(1, "a", u32(), false)
	dst := oir.NewVariable(2, "dst", u32(), false)
	instr := oir.EmitBinaryOpWithConst(dst, a, oir.OpDiv, oir.UintConstant(oir.ConstU32, 16))
	blk.AddStatement(instr)
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)
	assert.Equal(t, oir.OpShr, instr.Op)
	assert.EqualValues(t, 4, instr.Op2OffsetConst.AsInt64())
}

func TestConstPropThroughAssign(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	t2 := oir.NewVariable(1, "t2", i32(), true)
	t2.UseCount = 1
	x0 := oir.NewVariable(2, "x0", i32(), false)

	blk.AddStatement(oir.EmitAssignConst(t2, oir.UintConstant(oir.ConstHex, 0x8)))
	blk.AddStatement(oir.EmitAssign(x0, t2))
	blk.AddStatement(oir.EmitReturn(x0))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, oir.StmtAssignConst, instrs[0].Kind)
	assert.Same(t, x0, instrs[0].Assignee)
	assert.EqualValues(t, 8, instrs[0].Op1Const.AsInt64())
}

func TestConstFoldChainSubtractsExistingMinusIncoming(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	t0 := oir.NewVariable(1, "t0", i32(), true)
	t0.UseCount = 1
	u := oir.NewVariable(2, "u", i32(), false)

	blk.AddStatement(oir.EmitAssignConst(t0, oir.IntConstant(oir.ConstI32, 10)))
	blk.AddStatement(oir.EmitBinaryOpWithConst(u, t0, oir.OpSub, oir.IntConstant(oir.ConstI32, 3)))
	blk.AddStatement(oir.EmitReturn(u))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	require.Equal(t, oir.StmtAssignConst, instrs[0].Kind)
	assert.EqualValues(t, 7, instrs[0].Op1Const.AsInt64())
}

func TestCopyCollapse(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	t0 := oir.NewVariable(2, "t0", i32(), true)
	t0.UseCount = 1
	u := oir.NewVariable(3, "u", i32(), false)

	blk.AddStatement(oir.EmitAssign(t0, a))
	blk.AddStatement(oir.EmitAssign(u, t0))
	blk.AddStatement(oir.EmitReturn(u))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Same(t, u, instrs[0].Assignee)
	assert.Same(t, a, instrs[0].Op1)
}

func TestLoadForwardRetargetsAssignee(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	base := oir.NewVariable(1, "base", types.PointerTo(i32(), false), false)
	t0 := oir.NewVariable(2, "t0", i32(), true)
	t0.UseCount = 1
	u := oir.NewVariable(3, "u", i32(), false)

	load := oir.EmitLoad(t0, base)
	blk.AddStatement(load)
	blk.AddStatement(oir.EmitAssign(u, t0))
	blk.AddStatement(oir.EmitReturn(u))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Same(t, load, instrs[0])
	assert.Same(t, u, load.Assignee)
}

func TestInPlaceBinaryCollapse(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	z := oir.NewVariable(2, "z", i32(), false)
	t0 := oir.NewVariable(3, "t0", i32(), true)
	t0.UseCount = 1
	y := oir.NewVariable(4, "y", i32(), true)
	y.UseCount = 1

	blk.AddStatement(oir.EmitAssign(t0, a))
	blk.AddStatement(oir.EmitBinaryOp(y, t0, z, oir.OpAdd))
	blk.AddStatement(oir.EmitAssign(a, y))
	blk.AddStatement(oir.EmitReturn(a))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	require.Equal(t, oir.StmtBinaryOp, instrs[0].Kind)
	assert.Same(t, a, instrs[0].Assignee)
	assert.Same(t, a, instrs[0].Op1)
	assert.Same(t, z, instrs[0].Op2)
}

func TestAddressCalcStoreCondense(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	sp := oir.NewVariable(1, "sp", types.PointerTo(i32(), false), false)
	t4 := oir.NewVariable(2, "t4", types.PointerTo(i32(), false), true)
	t4.UseCount = 1
	t3 := oir.NewVariable(3, "t3", i32(), false)

	blk.AddStatement(oir.EmitLEA(t4, sp, nil, oir.IntConstant(oir.ConstI64, 8), 1))
	blk.AddStatement(oir.EmitStore(t4, t3))
	blk.AddStatement(oir.EmitReturn(nil))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	store := instrs[0]
	require.Equal(t, oir.StmtStoreConstOffset, store.Kind)
	assert.Same(t, sp, store.AddrReg1)
	assert.EqualValues(t, 8, store.Op2OffsetConst.AsInt64())
	assert.Same(t, t3, store.Op1)
}

func TestZeroOffsetLoadBecomesPlainLoad(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	base := oir.NewVariable(1, "base", types.PointerTo(i32(), false), false)
	dst := oir.NewVariable(2, "dst", i32(), false)
	load := oir.EmitLoadConstOffset(dst, base, oir.IntConstant(oir.ConstI64, 0))
	blk.AddStatement(load)
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)
	assert.Equal(t, oir.StmtLoad, load.Kind)
	assert.Nil(t, load.Op2OffsetConst)
}

func TestLogicalAndZeroFoldsToZero(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	dst := oir.NewVariable(2, "dst", i32(), false)
	instr := oir.EmitBinaryOpWithConst(dst, a, oir.OpLogicalAnd, oir.IntConstant(oir.ConstI32, 0))
	blk.AddStatement(instr)
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)
	assert.Equal(t, oir.StmtAssignConst, instr.Kind)
	assert.True(t, instr.Op1Const.IsZero())
}

func TestLogicalAndNonZeroBecomesTestSetne(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	dst := oir.NewVariable(2, "dst", i32(), false)
	blk.AddStatement(oir.EmitBinaryOpWithConst(dst, a, oir.OpLogicalAnd, oir.IntConstant(oir.ConstI32, 7)))
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)

	instrs := blk.Instructions()
	require.Len(t, instrs, 3)
	assert.Equal(t, oir.StmtTest, instrs[0].Kind)
	assert.Same(t, a, instrs[0].Op1)
	require.Equal(t, oir.StmtSetCC, instrs[1].Kind)
	assert.Equal(t, oir.BrNE, instrs[1].Branch)
	assert.Same(t, dst, instrs[1].Assignee)
}

func TestAddZeroBecomesPlainAssign(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	dst := oir.NewVariable(2, "dst", i32(), false)
	instr := oir.EmitBinaryOpWithConst(dst, a, oir.OpAdd, oir.IntConstant(oir.ConstI32, 0))
	blk.AddStatement(instr)
	blk.AddStatement(oir.EmitReturn(dst))

	Run(fn)
	assert.Equal(t, oir.StmtAssign, instr.Kind)
	assert.Same(t, a, instr.Op1)
}

func TestSimplifierIsIdempotentAtFixedPoint(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	a := oir.NewVariable(1, "a", i32(), false)
	t0 := oir.NewVariable(2, "t0", i32(), true)
	t0.UseCount = 1
	dst := oir.NewVariable(3, "dst", i32(), false)

	blk.AddStatement(oir.EmitAssignConst(t0, oir.IntConstant(oir.ConstI32, 4)))
	blk.AddStatement(oir.EmitBinaryOp(dst, a, t0, oir.OpAdd))
	blk.AddStatement(oir.EmitReturn(dst))

	RunToFixedPoint(fn)
	assert.False(t, Run(fn), "a second pass at the fixed point must change nothing")
}

func TestDeadTemporaryRemoved(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk
	t0 := oir.NewVariable(1, "t0", i32(), true)
	t0.UseCount = 0
	blk.AddStatement(oir.EmitAssignConst(t0, oir.IntConstant(oir.ConstI32, 1)))
	blk.AddStatement(oir.EmitReturn(nil))

	Run(fn)
	assert.Len(t, blk.Instructions(), 1)
}
