package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/ast"
	"nanoc/internal/cctx"
	"nanoc/internal/oir"
	"nanoc/internal/types"
)

var b ast.Builder

func i32() *types.Type { return types.Basic(types.I32, false) }

func buildFn(ctx *cctx.Context, name string, body *ast.Node) *oir.Function {
	fn := oir.NewFunction(ctx.NextFunctionID(), name, nil)
	Build(ctx, fn, body, nil)
	return fn
}

// TestStraightLineSingleBlock lowers a function with no control flow
// into a single basic block with no phis.
func TestStraightLineSingleBlock(t *testing.T) {
	ctx := cctx.New()
	body := b.Block(1,
		b.Decl("x", i32(), false, b.IntConst(1, i32(), 1), 1),
		b.Decl("y", i32(), false, b.Binary("+", b.Ident("x", 2), b.IntConst(2, i32(), 2), i32(), 2), 2),
		b.Return(b.Ident("y", 3), 3),
	)
	fn := buildFn(ctx, "straight", body)

	require.Len(t, fn.Blocks, 1)
	require.Same(t, fn.Entry, fn.Blocks[0])
	instrs := fn.Entry.Instructions()
	require.Len(t, instrs, 3)
	assert.Equal(t, oir.StmtAssignConst, instrs[0].Kind)
	assert.Equal(t, oir.StmtBinaryOp, instrs[1].Kind)
	assert.Equal(t, oir.StmtReturn, instrs[2].Kind)
	// the binary op's left operand should be the renamed SSA version of x
	assert.Same(t, instrs[0].Assignee, instrs[1].Op1)
}

// TestIfMergeInsertsPhi lowers a diamond if/else that assigns the same
// variable on both arms, and checks a phi with two operands appears in
// the merge block, one per predecessor.
func TestIfMergeInsertsPhi(t *testing.T) {
	ctx := cctx.New()
	body := b.Block(1,
		b.Decl("x", i32(), true, b.IntConst(0, i32(), 1), 1),
		b.If(
			b.Binary(">", b.Ident("x", 2), b.IntConst(0, i32(), 2), i32(), 2),
			b.Block(3, b.Assign("x", b.IntConst(1, i32(), 3), 3)),
			b.Block(4, b.Assign("x", b.IntConst(2, i32(), 4), 4)),
			2,
		),
		b.Return(b.Ident("x", 5), 5),
	)
	fn := buildFn(ctx, "diamond", body)

	require.Len(t, fn.Blocks, 4) // entry, then, merge, else
	merge := fn.Blocks[2]
	require.False(t, merge.IsEmpty())
	phi := merge.Leader()
	require.Equal(t, oir.StmtPhi, phi.Kind)
	require.Len(t, phi.Args, 2)
	assert.NotNil(t, phi.Args[0])
	assert.NotNil(t, phi.Args[1])
	assert.NotSame(t, phi.Args[0], phi.Args[1])

	ret := merge.Exit()
	require.Equal(t, oir.StmtReturn, ret.Kind)
	assert.Same(t, phi.Assignee, ret.Op1)
}

// TestWhileLoopHeaderPhi checks a while loop's header gets a phi
// merging the pre-loop value with the value coming back around the
// back edge, and that the loop body reads that phi's result rather
// than the pre-loop version.
func TestWhileLoopHeaderPhi(t *testing.T) {
	ctx := cctx.New()
	body := b.Block(1,
		b.Decl("i", i32(), true, b.IntConst(0, i32(), 1), 1),
		b.While(
			b.Binary("<", b.Ident("i", 2), b.IntConst(10, i32(), 2), i32(), 2),
			b.Block(3, b.Assign("i", b.Binary("+", b.Ident("i", 3), b.IntConst(1, i32(), 3), i32(), 3), 3)),
			2,
		),
		b.Return(nil, 4),
	)
	fn := buildFn(ctx, "loop", body)

	// entry, cond, body, exit
	require.Len(t, fn.Blocks, 4)
	condBlk := fn.Blocks[1]
	require.False(t, condBlk.IsEmpty())
	phi := condBlk.Leader()
	require.Equal(t, oir.StmtPhi, phi.Kind)
	require.Len(t, phi.Args, 2)

	branch := condBlk.Exit()
	require.Equal(t, oir.StmtBranch, branch.Kind)
	assert.Same(t, phi.Assignee, branch.Op1)
}

// TestLoopBodyFrequencyEstimate checks that blocks created inside a
// loop carry the x10 lexical-nesting frequency estimate and blocks
// outside it do not.
func TestLoopBodyFrequencyEstimate(t *testing.T) {
	ctx := cctx.New()
	body := b.Block(1,
		b.Decl("i", i32(), true, b.IntConst(0, i32(), 1), 1),
		b.While(
			b.Binary("<", b.Ident("i", 2), b.IntConst(10, i32(), 2), i32(), 2),
			b.Block(3, b.Assign("i", b.Binary("+", b.Ident("i", 3), b.IntConst(1, i32(), 3), i32(), 3), 3)),
			2,
		),
		b.Return(nil, 4),
	)
	fn := buildFn(ctx, "freq", body)

	require.Len(t, fn.Blocks, 4) // entry, cond, body, exit
	assert.EqualValues(t, 1, fn.Blocks[0].Frequency)
	assert.EqualValues(t, 10, fn.Blocks[1].Frequency)
	assert.EqualValues(t, 10, fn.Blocks[2].Frequency)
	assert.EqualValues(t, 1, fn.Blocks[3].Frequency)
}

// TestDominanceDiamond checks idom and dominance-frontier computation
// on a simple diamond shape independent of the AST lowering.
func TestDominanceDiamond(t *testing.T) {
	fn := oir.NewFunction(0, "manual", nil)
	entry := oir.NewBlock(0, fn)
	thenBlk := oir.NewBlock(1, fn)
	elseBlk := oir.NewBlock(2, fn)
	merge := oir.NewBlock(3, fn)
	fn.Entry = entry

	entry.AddSuccessor(thenBlk)
	entry.AddSuccessor(elseBlk)
	thenBlk.AddSuccessor(merge)
	elseBlk.AddSuccessor(merge)

	ComputeDominance(fn)
	ComputeDominanceFrontiers(fn)

	assert.Same(t, entry, thenBlk.IDom)
	assert.Same(t, entry, elseBlk.IDom)
	assert.Same(t, entry, merge.IDom)
	assert.Nil(t, entry.IDom)

	require.Len(t, thenBlk.DomFrontier, 1)
	assert.Same(t, merge, thenBlk.DomFrontier[0])
	require.Len(t, elseBlk.DomFrontier, 1)
	assert.Same(t, merge, elseBlk.DomFrontier[0])
	assert.Empty(t, merge.DomFrontier)
}

// TestSwitchBuildsJumpTable checks a dense switch lowers into a range
// check, a jump-table block ending in an indirect jump, one block per
// case, and CFG edges from the table block to every case.
func TestSwitchBuildsJumpTable(t *testing.T) {
	ctx := cctx.New()
	body := b.Block(1,
		b.Decl("x", i32(), true, b.IntConst(1, i32(), 1), 1),
		b.Switch(
			b.Ident("x", 2),
			[]ast.SwitchCase{
				{Value: 0, Body: b.Block(3, b.Assign("x", b.IntConst(10, i32(), 3), 3))},
				{Value: 1, Body: b.Block(4, b.Assign("x", b.IntConst(20, i32(), 4), 4))},
			},
			b.Block(5, b.Assign("x", b.IntConst(30, i32(), 5), 5)),
			2,
		),
		b.Return(b.Ident("x", 6), 6),
	)
	fn := buildFn(ctx, "dispatch", body)

	var tableBlk *oir.BasicBlock
	for _, blk := range fn.Blocks {
		if blk.JumpTable != nil {
			tableBlk = blk
			break
		}
	}
	require.NotNil(t, tableBlk)
	require.Len(t, tableBlk.JumpTable, 2)

	exit := tableBlk.Exit()
	require.NotNil(t, exit)
	assert.Equal(t, oir.StmtIndirectJumpAddrCalc, exit.Kind)
	assert.Equal(t, 8, exit.LEAScale)
	assert.True(t, exit.IsBranchEnding)

	for _, caseBlk := range tableBlk.JumpTable {
		assert.Contains(t, tableBlk.Succs, caseBlk)
		assert.Contains(t, caseBlk.Preds, tableBlk)
	}
}

// TestBreakContinueTargetLoopEdges checks break/continue jump to the
// loop's exit/condition blocks respectively.
func TestBreakContinueTargetLoopEdges(t *testing.T) {
	ctx := cctx.New()
	body := b.Block(1,
		b.Decl("i", i32(), true, b.IntConst(0, i32(), 1), 1),
		b.While(
			b.Binary("<", b.Ident("i", 2), b.IntConst(10, i32(), 2), i32(), 2),
			b.Block(3,
				b.If(b.Binary("==", b.Ident("i", 3), b.IntConst(5, i32(), 3), i32(), 3),
					b.Block(4, b.Break(4)), nil, 3),
				b.Continue(5),
			),
			2,
		),
		b.Return(nil, 6),
	)
	fn := buildFn(ctx, "loopbreak", body)
	require.NotEmpty(t, fn.Blocks)

	var sawBreakJumpToExit, sawContinueJumpToCond bool
	exitBlk := fn.Blocks[3]
	condBlk := fn.Blocks[1]
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			if instr.Kind == oir.StmtJump && instr.Then == exitBlk {
				sawBreakJumpToExit = true
			}
			if instr.Kind == oir.StmtJump && instr.Then == condBlk {
				sawContinueJumpToCond = true
			}
		}
	}
	assert.True(t, sawBreakJumpToExit)
	assert.True(t, sawContinueJumpToCond)
}
