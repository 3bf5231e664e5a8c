package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/oir"
	"nanoc/internal/types"
)

func i32() *types.Type { return types.Basic(types.I32, false) }

func TestPropagateCopiesRemovesAssignAndRewritesUses(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	src := oir.NewVariable(1, "a", i32(), false)
	dst := oir.NewVariable(2, "b", i32(), false)
	user := oir.NewVariable(3, "c", i32(), false)

	copyInstr := oir.EmitAssign(dst, src)
	dst.Def = copyInstr
	useInstr := oir.EmitBinaryOp(user, dst, dst, oir.OpAdd)
	dst.UseCount = 2

	blk.AddStatement(copyInstr)
	blk.AddStatement(useInstr)
	blk.AddStatement(oir.EmitReturn(user))

	changed := propagateCopies(fn)
	require.True(t, changed)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Same(t, src, instrs[0].Op1)
	assert.Same(t, src, instrs[0].Op2)
}

func TestEliminateDeadCodeKeepsSideEffects(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	blk := oir.NewBlock(0, fn)
	fn.Entry = blk

	dead := oir.NewVariable(1, "t0", i32(), true)
	deadInstr := oir.EmitAssignConst(dead, oir.IntConstant(oir.ConstI32, 5))
	dead.UseCount = 0

	callDst := oir.NewVariable(2, "t1", i32(), true)
	callInstr := oir.EmitCall(callDst, "f", nil)
	callDst.UseCount = 0 // unused result, but call must survive (side effect)

	blk.AddStatement(deadInstr)
	blk.AddStatement(callInstr)
	blk.AddStatement(oir.EmitReturn(nil))

	changed := eliminateDeadCode(fn)
	require.True(t, changed)

	instrs := blk.Instructions()
	require.Len(t, instrs, 2)
	assert.Equal(t, oir.StmtCall, instrs[0].Kind)
	assert.Equal(t, oir.StmtReturn, instrs[1].Kind)
}

func TestEliminateTrivialPhiCollapsesToOperand(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	header := oir.NewBlock(0, fn)
	fn.Entry = header

	v := oir.NewVariable(1, "x", i32(), false)
	phiDst := oir.NewVariable(2, "x", i32(), false)
	phi := &oir.Instruction{Kind: oir.StmtPhi, Assignee: phiDst, Args: []*oir.Variable{v, v}}
	header.AddStatement(phi)

	user := oir.NewVariable(3, "y", i32(), false)
	use := oir.EmitAssign(user, phiDst)
	header.AddStatement(use)
	header.AddStatement(oir.EmitReturn(user))

	changed := eliminateTrivialPhis(fn)
	require.True(t, changed)

	instrs := header.Instructions()
	require.Len(t, instrs, 2)
	assert.Same(t, v, instrs[0].Op1)
}

func TestPruneUnreachableDropsBlockAndTrimsPhiArgs(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	entry := oir.NewBlock(0, fn)
	reachablePred := oir.NewBlock(1, fn)
	unreachablePred := oir.NewBlock(2, fn)
	merge := oir.NewBlock(3, fn)
	fn.Entry = entry

	entry.AddSuccessor(reachablePred)
	reachablePred.AddSuccessor(merge)
	unreachablePred.AddSuccessor(merge) // never wired from entry

	a := oir.NewVariable(1, "a", i32(), false)
	c := oir.NewVariable(2, "c", i32(), false)
	phiDst := oir.NewVariable(3, "p", i32(), false)
	phi := &oir.Instruction{Kind: oir.StmtPhi, Assignee: phiDst, Args: []*oir.Variable{a, c}}
	merge.AddStatement(phi)

	pruneUnreachable(fn)

	require.Len(t, fn.Blocks, 3) // entry, reachablePred, merge
	require.Len(t, merge.Preds, 1)
	require.Len(t, phi.Args, 1)
	assert.Same(t, a, phi.Args[0])
}
