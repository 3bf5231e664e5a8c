package oir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/types"
)

func newVar(id uint64, name string) *Variable {
	return NewVariable(id, name, types.Basic(types.I32, false), false)
}

func TestBlockLinkedListInvariants(t *testing.T) {
	fn := NewFunction(1, "f", nil)
	blk := NewBlock(1, fn)

	x, y, z := newVar(1, "x"), newVar(2, "y"), newVar(3, "z")
	i1 := EmitAssign(x, y)
	i2 := EmitAssign(y, z)
	blk.AddStatement(i1)
	blk.AddStatement(i2)

	assert.Nil(t, blk.Leader().Prev())
	assert.Nil(t, blk.Exit().Next())
	assert.Same(t, i1, blk.Leader())
	assert.Same(t, i2, blk.Exit())
	require.Equal(t, 2, blk.Count())
}

func TestInsertBeforeAndAfter(t *testing.T) {
	fn := NewFunction(1, "f", nil)
	blk := NewBlock(1, fn)
	x, y, z := newVar(1, "x"), newVar(2, "y"), newVar(3, "z")

	i1 := EmitAssign(x, y)
	i3 := EmitAssign(z, x)
	blk.AddStatement(i1)
	blk.AddStatement(i3)

	i2 := EmitAssign(y, z)
	blk.InsertInstructionBefore(i3, i2)

	got := blk.Instructions()
	require.Len(t, got, 3)
	assert.Same(t, i1, got[0])
	assert.Same(t, i2, got[1])
	assert.Same(t, i3, got[2])

	i4 := EmitIdle()
	blk.InsertInstructionAfter(i3, i4)
	assert.Same(t, i4, blk.Exit())
	assert.Nil(t, blk.Exit().Next())
}

func TestDeleteStatementMaintainsLeaderTail(t *testing.T) {
	fn := NewFunction(1, "f", nil)
	blk := NewBlock(1, fn)
	x, y := newVar(1, "x"), newVar(2, "y")

	i1 := EmitAssign(x, y)
	blk.AddStatement(i1)
	blk.DeleteStatement(i1)

	assert.Nil(t, blk.Leader())
	assert.Nil(t, blk.Exit())
	assert.Equal(t, 0, blk.Count())
}

func TestDeleteStatementFromWrongBlockPanics(t *testing.T) {
	fn := NewFunction(1, "f", nil)
	blk1 := NewBlock(1, fn)
	blk2 := NewBlock(2, fn)
	x, y := newVar(1, "x"), newVar(2, "y")
	i1 := EmitAssign(x, y)
	blk1.AddStatement(i1)

	assert.Panics(t, func() { blk2.DeleteStatement(i1) })
}

func TestConstantCombinators(t *testing.T) {
	a := IntConstant(ConstI32, 6)
	b := IntConstant(ConstI32, 2)
	assert.Equal(t, int64(8), a.AddConstants(b).AsInt64())
	assert.Equal(t, int64(4), a.SubtractConstants(b).AsInt64())
	assert.Equal(t, int64(12), a.MultiplyConstants(b).AsInt64())
}

func TestConstantPowerOfTwo(t *testing.T) {
	assert.True(t, IntConstant(ConstI32, 8).IsPowerOfTwo())
	assert.False(t, IntConstant(ConstI32, 6).IsPowerOfTwo())
	assert.Equal(t, 3, IntConstant(ConstI32, 8).Log2())
}

func TestConstantZeroOne(t *testing.T) {
	assert.True(t, IntConstant(ConstI32, 0).IsZero())
	assert.True(t, IntConstant(ConstI32, 1).IsOne())
	assert.False(t, IntConstant(ConstI32, 2).IsZero())
}

func TestVariableSubstitutable(t *testing.T) {
	v := NewVariable(1, "t0", types.Basic(types.I32, false), true)
	v.UseCount = 1
	assert.True(t, v.Substitutable())
	v.UseCount = 2
	assert.False(t, v.Substitutable())
	v.Temporary = false
	v.UseCount = 1
	assert.False(t, v.Substitutable())
}

func TestLiveRangeNeighborSymmetryHelper(t *testing.T) {
	a := NewLiveRange(0)
	b := NewLiveRange(1)
	a.AddNeighbor(b)
	b.AddNeighbor(a)
	assert.True(t, a.HasNeighbor(b))
	assert.Equal(t, 1, a.Degree())
	a.RemoveNeighbor(b)
	b.RemoveNeighbor(a)
	assert.Equal(t, 0, a.Degree())
}

func TestPrintThreeAddressAssignConst(t *testing.T) {
	x := newVar(1, "x0")
	instr := EmitAssignConst(x, IntConstant(ConstHex, 8))
	assert.Equal(t, "x0 <- 0x8", PrintThreeAddress(instr))
}

func TestPrintBranch(t *testing.T) {
	fn := NewFunction(1, "f", nil)
	bt := NewBlock(1, fn)
	bf := NewBlock(2, fn)
	a, b := newVar(1, "a"), newVar(2, "b")
	instr := EmitBranch(BrE, a, b, bt, bf)
	assert.Equal(t, "br.e a, b -> block1 else block2", PrintThreeAddress(instr))
}
