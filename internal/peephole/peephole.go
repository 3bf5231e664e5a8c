// Package peephole implements the sliding-window simplifier: a small
// set of local rewrite rules applied to
// adjacent instructions within one basic block, re-anchoring the scan
// to the earliest instruction a rewrite could have affected so later
// rules see the freshly rewritten code, and iterating per block until
// no rule fires — a strictly-decreasing (statement count, operand
// count) measure is the termination argument.
package peephole

import (
	"nanoc/internal/oir"
	"nanoc/internal/types"
)

// Run simplifies every block of fn in place and reports whether any
// rewrite fired.
func Run(fn *oir.Function) bool {
	oir.RecountUses(fn)
	changed := false
	for _, blk := range fn.Blocks {
		if simplifyBlock(blk) {
			changed = true
		}
	}
	return changed
}

// RunToFixedPoint repeats Run until it reports no change — the rules
// can expose new matches for each other (a fold-to-const followed by a
// self-assign, say), so a single pass is not always enough.
func RunToFixedPoint(fn *oir.Function) {
	for Run(fn) {
	}
}

var rules = []func(blk *oir.BasicBlock, instr *oir.Instruction) bool{
	ruleSelfAssignment,
	ruleDeadTemporary,
	ruleConstPropThroughAssign,
	ruleConstFoldChain,
	ruleFoldConstIntoBinary,
	ruleRefoldBinaryWithConst,
	ruleCopyCollapse,
	ruleLoadForward,
	ruleInPlaceBinaryCollapse,
	ruleCopyIntoBinary,
	ruleAddressCalcCondense,
	ruleAddLoadStoreCondense,
	ruleMemoryAddressZeroOffset,
	ruleZeroOffsetLoadStore,
	ruleLogicalConst,
	ruleIdentityConst,
	rulePowerOfTwoStrengthReduce,
}

func simplifyBlock(blk *oir.BasicBlock) bool {
	changed := false
	cur := blk.Leader()
	for cur != nil {
		fired := false
		for _, rule := range rules {
			if rule(blk, cur) {
				fired = true
				changed = true
				// Re-anchor: resume from the instruction immediately
				// before the one we just rewrote, since the rule may
				// have changed what precedes it into something now
				// foldable too (re-window from the seed rather than a
				// full block rescan).
				if p := cur.Prev(); p != nil {
					cur = p
				} else {
					cur = blk.Leader()
				}
				break
			}
		}
		if fired {
			continue
		}
		cur = cur.Next()
	}
	return changed
}

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

// ruleSelfAssignment deletes `a <- a`.
func ruleSelfAssignment(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssign || instr.Assignee == nil {
		return false
	}
	if instr.Assignee != instr.Op1 {
		return false
	}
	blk.DeleteStatement(instr)
	return true
}

// ruleDeadTemporary deletes a compiler temporary's def once nothing
// reads it and the instruction has no other effect.
func ruleDeadTemporary(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Assignee == nil || !instr.Assignee.Temporary || hasSideEffect(instr) {
		return false
	}
	if instr.Assignee.UseCount > 0 {
		return false
	}
	blk.DeleteStatement(instr)
	return true
}

// ruleConstPropThroughAssign matches `t <- c` immediately followed by
// `x <- t` where t is a substitutable temporary, and collapses the
// pair into `x <- c`.
func ruleConstPropThroughAssign(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssignConst || instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil || next.Kind != oir.StmtAssign || next.Op1 != instr.Assignee {
		return false
	}
	next.Kind = oir.StmtAssignConst
	c := *instr.Op1Const
	next.Op1Const = &c
	next.Op1 = nil
	blk.DeleteStatement(instr)
	return true
}

// ruleConstFoldChain matches `t <- c1` immediately followed by
// `u <- t op c2` and folds the whole chain into the assign-const
// `u <- (c1 op c2)`, for the operators the Constant combinators can
// fold. Subtraction folds existing-minus-incoming: `t <- c1 ; u <- t
// - c2` becomes `u <- c1 - c2`.
func ruleConstFoldChain(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssignConst || instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil || next.Kind != oir.StmtBinaryOpWithConst || next.Op1 != instr.Assignee {
		return false
	}
	var folded oir.Constant
	switch next.Op {
	case oir.OpAdd:
		folded = instr.Op1Const.AddConstants(*next.Op2OffsetConst)
	case oir.OpSub:
		folded = instr.Op1Const.SubtractConstants(*next.Op2OffsetConst)
	case oir.OpMul:
		folded = instr.Op1Const.MultiplyConstants(*next.Op2OffsetConst)
	case oir.OpAnd:
		folded = instr.Op1Const.LogicalAndConstants(*next.Op2OffsetConst)
	case oir.OpOr:
		folded = instr.Op1Const.LogicalOrConstants(*next.Op2OffsetConst)
	default:
		return false
	}
	next.Kind = oir.StmtAssignConst
	next.Op = oir.OpNone
	next.Op1 = nil
	next.Op1Const = &folded
	next.Op2OffsetConst = nil
	blk.DeleteStatement(instr)
	return true
}

// ruleCopyCollapse matches `t <- a` immediately followed by `u <- t`
// (both plain assigns, t substitutable, no widening between the two
// types) and collapses to `u <- a`.
func ruleCopyCollapse(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssign || instr.Assignee == nil || instr.Op1 == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil || next.Kind != oir.StmtAssign || next.Op1 != instr.Assignee {
		return false
	}
	if widens(instr.Op1, next.Assignee) {
		return false
	}
	next.Op1 = instr.Op1
	blk.DeleteStatement(instr)
	return true
}

func widens(src, dst *oir.Variable) bool {
	if src == nil || dst == nil || src.Type == nil || dst.Type == nil {
		return false
	}
	return types.IsExpandingMoveRequired(dst.Type, src.Type)
}

// ruleLoadForward matches `load t <- [a]` immediately followed by
// `u <- t` and retargets the load's assignee straight at u, dropping
// the copy.
func ruleLoadForward(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	switch instr.Kind {
	case oir.StmtLoad, oir.StmtLoadConstOffset, oir.StmtLoadVarOffset:
	default:
		return false
	}
	if instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil || next.Kind != oir.StmtAssign || next.Op1 != instr.Assignee {
		return false
	}
	if widens(instr.Assignee, next.Assignee) {
		return false
	}
	instr.Assignee = next.Assignee
	blk.DeleteStatement(next)
	return true
}

// ruleCopyIntoBinary matches `t <- a` immediately followed by
// `y <- t op z` or `y <- z op t`, and substitutes a for t in the
// binary operation.
func ruleCopyIntoBinary(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssign || instr.Assignee == nil || instr.Op1 == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil {
		return false
	}
	t := instr.Assignee
	switch next.Kind {
	case oir.StmtBinaryOp:
		if next.Op1 != t && next.Op2 != t {
			return false
		}
		if next.Op1 == t {
			next.Op1 = instr.Op1
		}
		if next.Op2 == t {
			next.Op2 = instr.Op1
		}
	case oir.StmtBinaryOpWithConst:
		if next.Op1 != t {
			return false
		}
		next.Op1 = instr.Op1
	default:
		return false
	}
	blk.DeleteStatement(instr)
	return true
}

// ruleInPlaceBinaryCollapse is the full three-instruction window:
// `t <- a ; y <- t op z ; a <- y` with the same non-temporary a on
// both ends collapses to the in-place `a <- a op z`, with no LEA or
// extra move left behind.
func ruleInPlaceBinaryCollapse(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssign || instr.Assignee == nil || instr.Op1 == nil || !instr.Assignee.Substitutable() {
		return false
	}
	a := instr.Op1
	if a.Temporary {
		return false
	}
	i2 := instr.Next()
	if i2 == nil || i2.Kind != oir.StmtBinaryOp || i2.Op1 != instr.Assignee || i2.Assignee == nil || !i2.Assignee.Substitutable() {
		return false
	}
	i3 := i2.Next()
	if i3 == nil || i3.Kind != oir.StmtAssign || i3.Op1 != i2.Assignee || i3.Assignee != a {
		return false
	}
	i2.Op1 = a
	i2.Assignee = a
	blk.DeleteStatement(instr)
	blk.DeleteStatement(i3)
	return true
}

// ruleFoldConstIntoBinary matches `t <- c` immediately followed by
// `dst <- a op t`, where t is a substitutable temporary, and folds it
// into `dst <- a op c` (StmtBinaryOpWithConst).
func ruleFoldConstIntoBinary(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtAssignConst || instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil || next.Kind != oir.StmtBinaryOp {
		return false
	}
	t := instr.Assignee
	switch {
	case next.Op2 == t:
		next.Kind = oir.StmtBinaryOpWithConst
		c := *instr.Op1Const
		next.Op2OffsetConst = &c
		next.Op2 = nil
	case next.Op1 == t && commutative(next.Op):
		next.Kind = oir.StmtBinaryOpWithConst
		c := *instr.Op1Const
		next.Op2OffsetConst = &c
		next.Op1 = next.Op2
		next.Op2 = nil
	default:
		return false
	}
	blk.DeleteStatement(instr)
	return true
}

func commutative(op oir.Op) bool {
	switch op {
	case oir.OpAdd, oir.OpMul, oir.OpAnd, oir.OpOr, oir.OpXor:
		return true
	}
	return false
}

// ruleRefoldBinaryWithConst matches `t <- a op c1` immediately followed
// by `dst <- t op c2` for the same associative operator, and collapses
// them into `dst <- a op (c1 combine c2)` — the "same-temp re-fold"
// rule.
func ruleRefoldBinaryWithConst(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtBinaryOpWithConst || instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	next := instr.Next()
	if next == nil || next.Kind != oir.StmtBinaryOpWithConst || next.Op1 != instr.Assignee {
		return false
	}
	if instr.Op != next.Op {
		return false
	}
	var combined oir.Constant
	switch instr.Op {
	case oir.OpAdd:
		combined = instr.Op2OffsetConst.AddConstants(*next.Op2OffsetConst)
	case oir.OpMul:
		combined = instr.Op2OffsetConst.MultiplyConstants(*next.Op2OffsetConst)
	case oir.OpAnd:
		combined = instr.Op2OffsetConst.LogicalAndConstants(*next.Op2OffsetConst)
	case oir.OpOr:
		combined = instr.Op2OffsetConst.LogicalOrConstants(*next.Op2OffsetConst)
	default:
		return false
	}
	next.Op1 = instr.Op1
	next.Op2OffsetConst = &combined
	blk.DeleteStatement(instr)
	return true
}

// ruleAddressCalcCondense matches a LEA computing `t <- [base + c]`
// immediately followed by a load or store through t, and folds the
// offset directly into the load/store's own addressing mode, dropping
// the LEA.
func ruleAddressCalcCondense(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtLEA || instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	if instr.AddrMode != oir.AddrRegistersPlusOffset || instr.AddrReg2 != nil {
		return false
	}
	next := instr.Next()
	if next == nil {
		return false
	}
	t := instr.Assignee
	switch next.Kind {
	case oir.StmtLoad:
		if next.AddrReg1 != t {
			return false
		}
		next.Kind = oir.StmtLoadConstOffset
		c := *instr.Op2OffsetConst
		next.Op2OffsetConst = &c
		next.AddrReg1 = instr.AddrReg1
		next.AddrMode = oir.AddrRegistersPlusOffset
	case oir.StmtStore:
		if next.AddrReg1 != t {
			return false
		}
		next.Kind = oir.StmtStoreConstOffset
		c := *instr.Op2OffsetConst
		next.Op2OffsetConst = &c
		next.AddrReg1 = instr.AddrReg1
		next.AddrMode = oir.AddrRegistersPlusOffset
	default:
		return false
	}
	blk.DeleteStatement(instr)
	return true
}

// ruleAddLoadStoreCondense matches `t <- a + b` immediately followed
// by a load or store through t and folds the register-pair address
// into the memory operation's own addressing mode.
func ruleAddLoadStoreCondense(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtBinaryOp || instr.Op != oir.OpAdd || instr.Assignee == nil || !instr.Assignee.Substitutable() {
		return false
	}
	if !addrCompatible(instr.Op1) || !addrCompatible(instr.Op2) {
		return false
	}
	next := instr.Next()
	if next == nil {
		return false
	}
	t := instr.Assignee
	switch next.Kind {
	case oir.StmtLoad:
		if next.AddrReg1 != t {
			return false
		}
		next.Kind = oir.StmtLoadVarOffset
	case oir.StmtStore:
		if next.AddrReg1 != t {
			return false
		}
		next.Kind = oir.StmtStoreVarOffset
	default:
		return false
	}
	next.AddrReg1 = instr.Op1
	next.AddrReg2 = instr.Op2
	next.AddrMode = oir.AddrRegistersOnly
	blk.DeleteStatement(instr)
	return true
}

func addrCompatible(v *oir.Variable) bool {
	return v != nil && (v.Type == nil || v.Type.IsAddressCalcCompatible())
}

// ruleMemoryAddressZeroOffset rewrites a memory-address instruction
// whose offset is zero into a plain assign from its base register.
func ruleMemoryAddressZeroOffset(_ *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtMemoryAddress || instr.AddrReg1 == nil {
		return false
	}
	if instr.Op2OffsetConst != nil && !instr.Op2OffsetConst.IsZero() {
		return false
	}
	instr.Kind = oir.StmtAssign
	instr.Op1 = instr.AddrReg1
	instr.AddrReg1 = nil
	instr.Op2OffsetConst = nil
	instr.AddrMode = oir.AddrOffsetOnly
	return true
}

// ruleZeroOffsetLoadStore drops a zero constant offset from a load or
// store, reverting it to the plain dereferencing form.
func ruleZeroOffsetLoadStore(_ *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Op2OffsetConst == nil || !instr.Op2OffsetConst.IsZero() {
		return false
	}
	switch instr.Kind {
	case oir.StmtLoadConstOffset:
		instr.Kind = oir.StmtLoad
		instr.AddrMode = oir.AddrDerefSource
	case oir.StmtStoreConstOffset:
		instr.Kind = oir.StmtStore
		instr.AddrMode = oir.AddrDerefDest
	default:
		return false
	}
	instr.Op2OffsetConst = nil
	return true
}

// ruleLogicalConst folds a logical and/or against a known constant:
// `t <- a && 0` is always 0, `t <- a || c` with c non-zero is always
// 1, and `t <- a && c` with c non-zero is the truthiness of a, which
// becomes a test of a against itself followed by a setne (the movzx
// widening is the instruction selector's job).
func ruleLogicalConst(blk *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtBinaryOpWithConst || instr.Op2OffsetConst == nil || instr.Assignee == nil {
		return false
	}
	c := *instr.Op2OffsetConst
	switch {
	case instr.Op == oir.OpLogicalAnd && c.IsZero():
		instr.Kind = oir.StmtAssignConst
		zero := oir.IntConstant(c.Kind, 0)
		instr.Op1Const = &zero
		instr.Op, instr.Op1, instr.Op2OffsetConst = oir.OpNone, nil, nil
	case instr.Op == oir.OpLogicalOr && !c.IsZero():
		instr.Kind = oir.StmtAssignConst
		one := oir.IntConstant(c.Kind, 1)
		instr.Op1Const = &one
		instr.Op, instr.Op1, instr.Op2OffsetConst = oir.OpNone, nil, nil
	case instr.Op == oir.OpLogicalAnd || instr.Op == oir.OpLogicalOr:
		// && non-zero, or || 0: the result is a's truthiness.
		test := oir.EmitTestStatement(instr.Op1, instr.Op1)
		blk.InsertInstructionBefore(instr, test)
		setcc := oir.EmitSetCCInstruction(oir.BrNE, instr.Assignee, false)
		blk.InsertInstructionBefore(instr, setcc)
		blk.DeleteStatement(instr)
	default:
		return false
	}
	return true
}

// ruleIdentityConst strips operations against an identity or
// annihilating constant: add/sub of 0, shifts and or/xor by 0, and
// mul/div by 1 become plain assigns; mul by 0 becomes an assign of 0;
// add/sub of 1 against the same variable becomes inc/dec.
func ruleIdentityConst(_ *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtBinaryOpWithConst || instr.Op2OffsetConst == nil || instr.Assignee == nil || instr.Op1 == nil {
		return false
	}
	c := *instr.Op2OffsetConst
	inPlace := instr.Assignee == instr.Op1
	switch {
	case inPlace && instr.Op == oir.OpAdd && c.IsOne():
		instr.Kind = oir.StmtInc
		instr.Op, instr.Op1, instr.Op2OffsetConst = oir.OpNone, nil, nil
	case inPlace && instr.Op == oir.OpSub && c.IsOne():
		instr.Kind = oir.StmtDec
		instr.Op, instr.Op1, instr.Op2OffsetConst = oir.OpNone, nil, nil
	case c.IsZero() && isAdditiveIdentityOp(instr.Op):
		becomeAssign(instr)
	case c.IsOne() && (instr.Op == oir.OpMul || instr.Op == oir.OpDiv):
		becomeAssign(instr)
	case c.IsZero() && instr.Op == oir.OpMul:
		instr.Kind = oir.StmtAssignConst
		zero := oir.IntConstant(c.Kind, 0)
		instr.Op1Const = &zero
		instr.Op, instr.Op1, instr.Op2OffsetConst = oir.OpNone, nil, nil
	default:
		return false
	}
	return true
}

func isAdditiveIdentityOp(op oir.Op) bool {
	switch op {
	case oir.OpAdd, oir.OpSub, oir.OpShl, oir.OpShr, oir.OpOr, oir.OpXor:
		return true
	}
	return false
}

func becomeAssign(instr *oir.Instruction) {
	instr.Kind = oir.StmtAssign
	instr.Op = oir.OpNone
	instr.Op2OffsetConst = nil
}

// rulePowerOfTwoStrengthReduce rewrites a multiply-by-constant or
// unsigned-divide-by-constant into a shift when the constant is a
// power of two.
func rulePowerOfTwoStrengthReduce(_ *oir.BasicBlock, instr *oir.Instruction) bool {
	if instr.Kind != oir.StmtBinaryOpWithConst || instr.Op2OffsetConst == nil {
		return false
	}
	if !instr.Op2OffsetConst.IsPowerOfTwo() {
		return false
	}
	switch instr.Op {
	case oir.OpMul:
		instr.Op = oir.OpShl
	case oir.OpDiv:
		if instr.Op1 == nil || instr.Op1.Type == nil || instr.Op1.Type.IsSigned() {
			return false // signed division-by-power-of-two needs a rounding fixup, not a plain shift
		}
		instr.Op = oir.OpShr
	default:
		return false
	}
	shiftAmount := instr.Op2OffsetConst.Log2()
	c := oir.IntConstant(oir.ConstI32, int64(shiftAmount))
	instr.Op2OffsetConst = &c
	return true
}
