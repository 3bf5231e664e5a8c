// Package cfg lowers an upstream AST (internal/ast) into a
// control-flow graph of OIR basic blocks (internal/oir), then promotes
// the result to SSA form: dominance, dominance frontiers, phi
// insertion, and renaming. This is the one place the backend does real "front end
// adjacent" work, because there is no parser in scope —
// callers hand cfg.Build an AST built directly or via ast.Builder.
package cfg

import (
	"fmt"

	"nanoc/internal/ast"
	"nanoc/internal/cctx"
	"nanoc/internal/container"
	"nanoc/internal/oir"
	"nanoc/internal/types"
)

var binaryOps = map[string]oir.Op{
	"+": oir.OpAdd, "-": oir.OpSub, "*": oir.OpMul, "/": oir.OpDiv, "%": oir.OpMod,
	"&": oir.OpAnd, "|": oir.OpOr, "^": oir.OpXor, "<<": oir.OpShl, ">>": oir.OpShr,
}

var branchOps = map[string]oir.BranchKind{
	"<": oir.BrL, "<=": oir.BrLE, ">": oir.BrG, ">=": oir.BrGE, "==": oir.BrE, "!=": oir.BrNE,
}

// loopTargets is one entry on the loop-nesting stack, giving break/
// continue their jump destinations.
type loopTargets struct {
	continueTo *oir.BasicBlock
	breakTo    *oir.BasicBlock
}

// builder holds the mutable state threaded through one function's
// lowering pass.
type builder struct {
	ctx *cctx.Context
	fn  *oir.Function

	current *oir.BasicBlock

	// locals maps a surface name to its current (pre-SSA) slot
	// variable. Each slot is reused across every assignment to that
	// name until renameToSSA replaces uses with versioned copies.
	locals map[string]*oir.Variable

	// vars collects, per surface name, the template variable (for its
	// type) and the set of blocks that assign it — exactly what
	// InsertPhis needs to compute the iterated dominance frontier.
	vars map[string]*varInfo

	loops   []loopTargets
	nesting *container.NestingStack
}

// newBlock allocates a block stamped with the current lexical
// nesting's estimated execution frequency, which the allocator later
// uses to weight spill costs.
func (b *builder) newBlock() *oir.BasicBlock {
	blk := oir.NewBlock(b.ctx.NextBlockID(), b.fn)
	blk.Frequency = b.nesting.EstimatedFrequency()
	return blk
}

// varInfo is one surface-level (pre-SSA) local's bookkeeping: its
// template variable (any def's slot works, since they all share a
// type) and every block that assigns it.
type varInfo struct {
	template  *oir.Variable
	defBlocks *container.PointerSet[oir.BasicBlock]
}

// Build lowers body (a ClassBlockStmt node, the function's statement
// list) into fn's basic blocks and promotes the result to SSA form.
// params gives the pre-declared parameter slots, already inserted into
// fn.Params by the caller.
func Build(ctx *cctx.Context, fn *oir.Function, body *ast.Node, params map[string]*oir.Variable) {
	b := &builder{
		ctx:     ctx,
		fn:      fn,
		locals:  make(map[string]*oir.Variable),
		vars:    make(map[string]*varInfo),
		nesting: container.NewNestingStack(),
	}
	b.nesting.Push(container.NestFunction)
	entry := b.newBlock()
	fn.Entry = entry
	b.current = entry

	for name, v := range params {
		b.locals[name] = v
		b.recordDef(name, entry)
	}

	b.lowerStmt(body)
	if b.current != nil && b.current.Exit() == nil {
		// Fell off the end of the function with no explicit return:
		// the front end is responsible for type-checking that void
		// functions don't need one; nanoc still needs a terminator.
		b.current.AddStatement(oir.EmitReturn(nil))
	}

	ComputeDominance(fn)
	ComputeDominanceFrontiers(fn)
	phis := InsertPhis(ctx, fn, b.vars)
	RenameToSSA(ctx, fn, b.vars, phis)
}

func (b *builder) recordDef(name string, blk *oir.BasicBlock) {
	info, ok := b.vars[name]
	if !ok {
		info = &varInfo{template: b.locals[name], defBlocks: container.NewPointerSet[oir.BasicBlock]()}
		b.vars[name] = info
	}
	info.defBlocks.Add(blk)
}

// terminated reports whether the current block already ends in a
// branch-ending instruction, meaning control cannot fall through it.
func (b *builder) terminated() bool {
	return b.current != nil && b.current.Exit() != nil && b.current.Exit().IsBranchEnding
}

// sealFallthrough emits an unconditional jump from the current block
// to target unless the current block is already terminated, and wires
// the CFG edge either way the jump would have gone (a terminated block
// keeps whatever edges its own terminator already added).
func (b *builder) sealFallthrough(target *oir.BasicBlock) {
	if b.terminated() {
		return
	}
	b.current.AddStatement(oir.EmitJumpInstructionDirectly(target))
	b.current.AddSuccessor(target)
}

func (b *builder) lowerStmt(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Class {
	case ast.ClassBlockStmt:
		for _, c := range n.Children() {
			b.lowerStmt(c)
		}
	case ast.ClassDeclStmt:
		p := n.Payload.(ast.DeclPayload)
		slot := oir.NewVariable(b.ctx.NextTempID(), p.Name, p.Type, false)
		b.locals[p.Name] = slot
		if p.Value != nil {
			v := b.lowerExpr(p.Value)
			b.current.AddStatement(oir.EmitAssign(slot, v))
		} else {
			b.current.AddStatement(oir.EmitAssignConst(slot, zeroConstOf(p.Type)))
		}
		b.recordDef(p.Name, b.current)
	case ast.ClassAssignStmt:
		p := n.Payload.(ast.AssignPayload)
		slot, ok := b.locals[p.Name]
		if !ok {
			panic(fmt.Sprintf("cfg: assignment to undeclared name %q at line %d", p.Name, n.Line))
		}
		v := b.lowerExpr(p.Value)
		b.current.AddStatement(oir.EmitAssign(slot, v))
		b.recordDef(p.Name, b.current)
	case ast.ClassIfStmt:
		b.lowerIf(n)
	case ast.ClassWhileStmt:
		b.lowerWhile(n)
	case ast.ClassSwitchStmt:
		b.lowerSwitch(n)
	case ast.ClassReturnStmt:
		p := n.Payload.(ast.ReturnPayload)
		var v *oir.Variable
		if p.Value != nil {
			v = b.lowerExpr(p.Value)
		}
		b.current.AddStatement(oir.EmitReturn(v))
	case ast.ClassBreakStmt:
		if len(b.loops) == 0 {
			panic("cfg: break outside a loop")
		}
		target := b.loops[len(b.loops)-1].breakTo
		b.current.AddStatement(oir.EmitJumpInstructionDirectly(target))
		b.current.AddSuccessor(target)
	case ast.ClassContinueStmt:
		if len(b.loops) == 0 {
			panic("cfg: continue outside a loop")
		}
		target := b.loops[len(b.loops)-1].continueTo
		b.current.AddStatement(oir.EmitJumpInstructionDirectly(target))
		b.current.AddSuccessor(target)
	default:
		panic(fmt.Sprintf("cfg: unsupported statement class %v at line %d", n.Class, n.Line))
	}
}

func (b *builder) lowerIf(n *ast.Node) {
	p := n.Payload.(ast.IfPayload)
	cond := b.lowerCondition(p.Cond)

	b.nesting.Push(container.NestIf)
	thenBlk := b.newBlock()
	b.nesting.Pop()
	mergeBlk := b.newBlock()
	elseBlk := mergeBlk
	if p.Else != nil {
		b.nesting.Push(container.NestIf)
		elseBlk = b.newBlock()
		b.nesting.Pop()
	}

	b.emitBranch(cond, thenBlk, elseBlk)

	b.nesting.Push(container.NestIf)
	b.current = thenBlk
	b.lowerStmt(p.Then)
	b.sealFallthrough(mergeBlk)

	if p.Else != nil {
		b.current = elseBlk
		b.lowerStmt(p.Else)
		b.sealFallthrough(mergeBlk)
	}
	b.nesting.Pop()

	b.current = mergeBlk
}

func (b *builder) lowerWhile(n *ast.Node) {
	p := n.Payload.(ast.WhilePayload)
	b.nesting.Push(container.NestLoop)
	condBlk := b.newBlock()
	bodyBlk := b.newBlock()
	b.nesting.Pop()
	exitBlk := b.newBlock()

	b.current.AddStatement(oir.EmitJumpInstructionDirectly(condBlk))
	b.current.AddSuccessor(condBlk)

	b.current = condBlk
	cond := b.lowerCondition(p.Cond)
	b.emitBranch(cond, bodyBlk, exitBlk)

	b.nesting.Push(container.NestLoop)
	b.loops = append(b.loops, loopTargets{continueTo: condBlk, breakTo: exitBlk})
	b.current = bodyBlk
	b.lowerStmt(p.Body)
	b.sealFallthrough(condBlk)
	b.loops = b.loops[:len(b.loops)-1]
	b.nesting.Pop()

	b.current = exitBlk
}

// lowerSwitch lowers a dense-integer switch into a range check
// followed by a jump-table block: out-of-range subjects take the
// default (or exit) edge, in-range ones reach a block whose only
// instruction is an indirect jump computing its target as table base
// plus scaled index. The table itself lives on that block's JumpTable
// field.
func (b *builder) lowerSwitch(n *ast.Node) {
	p := n.Payload.(ast.SwitchPayload)
	subject := b.lowerExpr(p.Subject)

	checkBlk := b.newBlock()
	tableBlk := b.newBlock()
	exitBlk := b.newBlock()
	defaultBlk := exitBlk
	if p.Default != nil {
		b.nesting.Push(container.NestCase)
		defaultBlk = b.newBlock()
		b.nesting.Pop()
	}

	b.sealFallthrough(checkBlk)

	// Range check: an index at or beyond the table's case count takes
	// the default edge instead of going through the table.
	b.current = checkBlk
	bound := oir.NewVariable(b.ctx.NextTempID(), "", subject.Type, true)
	checkBlk.AddStatement(oir.EmitAssignConst(bound, oir.IntConstant(oir.ConstI64, int64(len(p.Cases)))))
	b.emitBranch(condition{kind: oir.BrAE, lhs: subject, rhs: bound}, defaultBlk, tableBlk)

	indirect := &oir.Instruction{
		Kind:           oir.StmtIndirectJumpAddrCalc,
		Op1:            subject,
		AddrMode:       oir.AddrRegistersPlusOffsetScale,
		LEAScale:       8,
		IsBranchEnding: true,
	}
	subject.UseCount++
	tableBlk.AddStatement(indirect)

	b.nesting.Push(container.NestCase)
	for _, c := range p.Cases {
		caseBlk := b.newBlock()
		tableBlk.JumpTable = append(tableBlk.JumpTable, caseBlk)
		tableBlk.AddSuccessor(caseBlk)
		b.current = caseBlk
		b.lowerStmt(c.Body)
		b.sealFallthrough(exitBlk)
	}
	b.nesting.Pop()

	if p.Default != nil {
		b.current = defaultBlk
		b.lowerStmt(p.Default)
		b.sealFallthrough(exitBlk)
	}

	b.current = exitBlk
}

// condition is a lowered boolean test ready to drive a two-way branch:
// either a relational comparison (kind/lhs/rhs) or a plain truthiness
// check against zero.
type condition struct {
	kind     oir.BranchKind
	lhs, rhs *oir.Variable
}

// lowerCondition lowers an expression used in boolean context. A
// top-level relational operator becomes the branch's own comparison;
// anything else is compared against zero for truthiness.
func (b *builder) lowerCondition(n *ast.Node) condition {
	if n.Class == ast.ClassBinaryExpr {
		p := n.Payload.(ast.BinaryPayload)
		if kind, ok := branchOps[p.Operator]; ok {
			lhs := b.lowerExpr(p.Left)
			rhs := b.lowerExpr(p.Right)
			return condition{kind: kind, lhs: lhs, rhs: rhs}
		}
	}
	if n.Class == ast.ClassLogicalExpr {
		return b.lowerLogicalCondition(n)
	}
	v := b.lowerExpr(n)
	zero := oir.NewVariable(b.ctx.NextTempID(), "", v.Type, true)
	b.current.AddStatement(oir.EmitAssignConst(zero, zeroConstOf(v.Type)))
	return condition{kind: oir.BrNE, lhs: v, rhs: zero}
}

// lowerLogicalCondition handles "&&"/"||" used directly in an if/while
// test by branching straight on the short-circuit structure, instead
// of materializing a 0/1 value first.
func (b *builder) lowerLogicalCondition(n *ast.Node) condition {
	p := n.Payload.(ast.LogicalPayload)
	result := b.lowerLogicalValue(p.Operator, p.Left, p.Right)
	zero := oir.NewVariable(b.ctx.NextTempID(), "", result.Type, true)
	b.current.AddStatement(oir.EmitAssignConst(zero, zeroConstOf(result.Type)))
	return condition{kind: oir.BrNE, lhs: result, rhs: zero}
}

func (b *builder) emitBranch(c condition, thenBlk, elseBlk *oir.BasicBlock) {
	b.current.AddStatement(oir.EmitBranch(c.kind, c.lhs, c.rhs, thenBlk, elseBlk))
	b.current.AddSuccessor(thenBlk)
	b.current.AddSuccessor(elseBlk)
}

// lowerExpr lowers an expression to the variable holding its value,
// emitting whatever instructions are needed into the current block.
func (b *builder) lowerExpr(n *ast.Node) *oir.Variable {
	switch n.Class {
	case ast.ClassIdentifier:
		p := n.Payload.(ast.IdentifierPayload)
		v, ok := b.locals[p.Name]
		if !ok {
			panic(fmt.Sprintf("cfg: read of undeclared name %q at line %d", p.Name, n.Line))
		}
		v.UseCount++
		return v
	case ast.ClassConstant:
		p := n.Payload.(ast.ConstantPayload)
		dst := oir.NewVariable(b.ctx.NextTempID(), "", n.InferredType, true)
		b.current.AddStatement(oir.EmitAssignConst(dst, constantFromLiteral(n.InferredType, p.Value)))
		return dst
	case ast.ClassBinaryExpr:
		p := n.Payload.(ast.BinaryPayload)
		if kind, ok := branchOps[p.Operator]; ok {
			return b.lowerRelationalValue(kind, p.Left, p.Right, n.InferredType)
		}
		op, ok := binaryOps[p.Operator]
		if !ok {
			panic(fmt.Sprintf("cfg: unsupported binary operator %q at line %d", p.Operator, n.Line))
		}
		lhs := b.lowerExpr(p.Left)
		rhs := b.lowerExpr(p.Right)
		dst := oir.NewVariable(b.ctx.NextTempID(), "", n.InferredType, true)
		b.current.AddStatement(oir.EmitBinaryOp(dst, lhs, rhs, op))
		return dst
	case ast.ClassUnaryExpr:
		p := n.Payload.(ast.UnaryPayload)
		operand := b.lowerExpr(p.Operand)
		dst := oir.NewVariable(b.ctx.NextTempID(), "", n.InferredType, true)
		switch p.Operator {
		case "-":
			b.current.AddStatement(&oir.Instruction{Kind: oir.StmtUnaryNegate, Assignee: dst, Op1: operand})
		case "~":
			b.current.AddStatement(&oir.Instruction{Kind: oir.StmtBitwiseNot, Assignee: dst, Op1: operand})
		case "!":
			b.current.AddStatement(&oir.Instruction{Kind: oir.StmtLogicalNot, Assignee: dst, Op1: operand})
		default:
			panic(fmt.Sprintf("cfg: unsupported unary operator %q at line %d", p.Operator, n.Line))
		}
		return dst
	case ast.ClassLogicalExpr:
		p := n.Payload.(ast.LogicalPayload)
		return b.lowerLogicalValue(p.Operator, p.Left, p.Right)
	default:
		panic(fmt.Sprintf("cfg: unsupported expression class %v at line %d", n.Class, n.Line))
	}
}

// lowerRelationalValue lowers a top-level comparison used as a value
// (not directly as a branch condition) into a SETcc-style 0/1 result.
func (b *builder) lowerRelationalValue(kind oir.BranchKind, leftN, rightN *ast.Node, ty *types.Type) *oir.Variable {
	lhs := b.lowerExpr(leftN)
	rhs := b.lowerExpr(rightN)
	b.current.AddStatement(oir.EmitCmp(lhs, rhs))
	dst := oir.NewVariable(b.ctx.NextTempID(), "", ty, true)
	b.current.AddStatement(oir.EmitSetCCInstruction(kind, dst, lhs.Type.IsSigned()))
	return dst
}

// lowerLogicalValue lowers "&&"/"||" used as a value by branching into
// two blocks that each store a 0/1 result into a shared slot, then
// merging — the classical short-circuit-to-value pattern.
func (b *builder) lowerLogicalValue(op string, leftN, rightN *ast.Node) *oir.Variable {
	resultTy := types.Basic(types.Bool, false)
	result := oir.NewVariable(b.ctx.NextTempID(), "", resultTy, true)

	lhs := b.lowerExpr(leftN)
	zero := oir.NewVariable(b.ctx.NextTempID(), "", lhs.Type, true)
	b.current.AddStatement(oir.EmitAssignConst(zero, zeroConstOf(lhs.Type)))

	rhsBlk := b.newBlock()
	shortBlk := b.newBlock()
	mergeBlk := b.newBlock()

	if op == "&&" {
		b.emitBranch(condition{kind: oir.BrNE, lhs: lhs, rhs: zero}, rhsBlk, shortBlk)
	} else {
		b.emitBranch(condition{kind: oir.BrNE, lhs: lhs, rhs: zero}, shortBlk, rhsBlk)
	}

	b.current = shortBlk
	shortVal := boolConst(op == "||")
	b.current.AddStatement(oir.EmitAssignConst(result, shortVal))
	b.sealFallthrough(mergeBlk)

	b.current = rhsBlk
	rhs := b.lowerExpr(rightN)
	rzero := oir.NewVariable(b.ctx.NextTempID(), "", rhs.Type, true)
	b.current.AddStatement(oir.EmitAssignConst(rzero, zeroConstOf(rhs.Type)))
	b.current.AddStatement(oir.EmitCmp(rhs, rzero))
	b.current.AddStatement(oir.EmitSetCCInstruction(oir.BrNE, result, rhs.Type.IsSigned()))
	b.sealFallthrough(mergeBlk)

	b.current = mergeBlk
	return result
}

func boolConst(v bool) oir.Constant {
	if v {
		return oir.IntConstant(oir.ConstI32, 1)
	}
	return oir.IntConstant(oir.ConstI32, 0)
}

func zeroConstOf(ty *types.Type) oir.Constant {
	if ty != nil && ty.Kind == types.KindBasic && (ty.Prim == types.Float32 || ty.Prim == types.Float64) {
		return oir.FloatConstant(0)
	}
	return oir.IntConstant(oir.ConstI32, 0)
}

func constantFromLiteral(ty *types.Type, value any) oir.Constant {
	switch v := value.(type) {
	case int64:
		return oir.IntConstant(kindFor(ty), v)
	case uint64:
		return oir.UintConstant(kindFor(ty), v)
	case float64:
		return oir.FloatConstant(v)
	case string:
		return oir.StringConstant(v)
	default:
		panic(fmt.Sprintf("cfg: unsupported literal payload %T", value))
	}
}

func kindFor(ty *types.Type) oir.ConstKind {
	if ty == nil || ty.Kind != types.KindBasic {
		return oir.ConstI32
	}
	switch ty.Prim {
	case types.I8:
		return oir.ConstI8
	case types.U8:
		return oir.ConstU8
	case types.I16:
		return oir.ConstI16
	case types.U16:
		return oir.ConstU16
	case types.U32:
		return oir.ConstU32
	case types.I64:
		return oir.ConstI64
	case types.U64:
		return oir.ConstU64
	case types.Char:
		return oir.ConstChar
	default:
		return oir.ConstI32
	}
}
