// Package iselect lowers OIR instructions, already peephole-simplified
// and block-linearized, into x86-64 instruction selections: an
// InstrType mnemonic plus symbolic source/destination operand
// placeholders, filled in with each operand's own Variable name.
// internal/regalloc later substitutes those placeholders for the
// concrete physical register (or stack-relative operand) the
// allocator assigned, matching the two-stage
// select-then-allocate split.
//
// Composite multi-instruction patterns (signed division and its
// sign-extension setup, unsigned multiply's RAX staging, mainly) are
// matched before the single-instruction table, since they consume
// more than one OIR statement's worth of x86-64 code.
package iselect

import "nanoc/internal/oir"

func operand(v *oir.Variable) string {
	if v == nil {
		return ""
	}
	return v.Name
}

// SizeDict is the variable size dictionary the selector consumes
// alongside the simplified OIR: every variable it
// touches mapped to its width in bytes, so mnemonics can carry the
// b/w/l/q suffix x86-64 needs without re-deriving it from the type
// system at every single instruction.
type SizeDict map[*oir.Variable]int

// NewSizeDict builds the dictionary for fn: every parameter and every
// operand appearing anywhere in fn's instructions, sized from its
// declared type. Variables with no type — the synthetic stack/frame-
// pointer sentinels spill.go introduces — default to the 8-byte
// pointer width, since they never appear as the sized operand of a
// mnemonic themselves (only as an address-calculation base).
func NewSizeDict(fn *oir.Function) SizeDict {
	d := make(SizeDict)
	record := func(v *oir.Variable) {
		if v == nil {
			return
		}
		if _, ok := d[v]; ok {
			return
		}
		if v.Type != nil {
			d[v] = v.Type.Size()
		} else {
			d[v] = 8
		}
	}
	for _, p := range fn.Params {
		record(p)
	}
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			record(instr.Assignee)
			record(instr.Op1)
			record(instr.Op2)
			record(instr.AddrReg1)
			record(instr.AddrReg2)
			for _, a := range instr.Args {
				record(a)
			}
		}
	}
	return d
}

func (d SizeDict) sizeOf(v *oir.Variable) int {
	if v == nil {
		return 8
	}
	if sz, ok := d[v]; ok && sz > 0 {
		return sz
	}
	if v.Type != nil {
		return v.Type.Size()
	}
	return 8
}

// sizeSuffix is the x86-64 AT&T operand-size suffix for sz bytes.
// Unrecognized widths default to the 4-byte
// suffix rather than panicking, matching the ABI's own default
// operand size.
func sizeSuffix(sz int) string {
	switch sz {
	case 1:
		return "b"
	case 2:
		return "w"
	case 8:
		return "q"
	default:
		return "l"
	}
}

// Select walks every block of fn and assigns each instruction its
// selected form, expanding DIV/MOD into the RDX:RAX sign-extend +
// divide sequence and unsigned MUL into its RAX-staging sequence, the
// composite ABI patterns x86-64 requires, before falling through to
// the per-instruction table for everything else.
func Select(fn *oir.Function) {
	sizes := NewSizeDict(fn)
	for _, blk := range fn.Blocks {
		selectBlock(blk, sizes)
	}
}

func selectBlock(blk *oir.BasicBlock, sizes SizeDict) {
	instr := blk.Leader()
	for instr != nil {
		next := instr.Next()
		switch {
		case instr.Kind == oir.StmtBinaryOp && (instr.Op == oir.OpDiv || instr.Op == oir.OpMod):
			next = expandDivMod(blk, instr, sizes)
		case instr.Kind == oir.StmtBinaryOp && instr.Op == oir.OpMul && isUnsignedOperand(instr.Op1):
			next = expandUnsignedMul(blk, instr, sizes)
		case instr.Kind == oir.StmtBinaryOp && (instr.Op == oir.OpLogicalAnd || instr.Op == oir.OpLogicalOr):
			next = expandLogical(blk, instr, sizes)
		case instr.Kind == oir.StmtBinaryOp && isShift(instr.Op) && instr.Op2 != nil && instr.Op2.IsParameter():
			stageShiftCount(blk, instr, sizes)
			selectOne(instr, sizes)
		case instr.Kind == oir.StmtBranch:
			selectOne(instr, sizes)
			next = expandBranchFallthrough(blk, instr)
		case instr.Kind == oir.StmtJump && instr.Then != nil && instr.Then == blk.DirectSuccessor:
			// The linearizer placed the target right after this block;
			// the jump it left behind as a deletion candidate is dropped here.
			blk.DeleteStatement(instr)
		case instr.Kind == oir.StmtIndirectJump || instr.Kind == oir.StmtIndirectJumpAddrCalc:
			widenIndirectIndex(blk, instr, sizes)
			selectOne(instr, sizes)
		default:
			selectOne(instr, sizes)
		}
		instr = next
	}
}

func isUnsignedOperand(v *oir.Variable) bool {
	return v == nil || v.Type == nil || !v.Type.IsSigned()
}

// expandDivMod rewrites `dst <- a / b` or `dst <- a % b` into the
// sign-extend-then-divide sequence: a CBW/CWDE/CDQ/CQO-style widen of
// a into RDX:RAX sized off a's own width (modeled as a cast
// instruction reusing a's own value, since nanoc's OIR has no
// dedicated widen-to-double-width statement), an IDIV/DIV, and — for
// modulo — a follow-up move that takes the quotient instruction's
// remainder side instead of its quotient side. The final writeback is
// marked non-combinable so a later peephole pass never fuses it back
// into the divide. It returns the next instruction to
// resume scanning from.
func expandDivMod(blk *oir.BasicBlock, instr *oir.Instruction, sizes SizeDict) *oir.Instruction {
	signed := instr.Op1 != nil && instr.Op1.Type != nil && instr.Op1.Type.IsSigned()
	sz := sizes.sizeOf(instr.Op1)

	widen := &oir.Instruction{Kind: oir.StmtCast, Op1: instr.Op1}
	widen.InstrType = widenMnemonic(signed, sz)
	widen.SrcReg = operand(instr.Op1)
	widen.DstReg = "rdx:rax"
	blk.InsertInstructionBefore(instr, widen)

	isMod := instr.Op == oir.OpMod
	instr.InstrType = divMnemonic(signed, sz)
	instr.SrcReg = operand(instr.Op2)
	if isMod {
		instr.DstReg = "rdx" // remainder side
	} else {
		instr.DstReg = "rax" // quotient side
	}

	next := instr.Next()
	writeback := &oir.Instruction{Kind: oir.StmtAssign, Assignee: instr.Assignee, CannotCombine: true}
	writeback.InstrType = "mov" + sizeSuffix(sizes.sizeOf(instr.Assignee))
	if isMod {
		writeback.SrcReg = "rdx"
	} else {
		writeback.SrcReg = "rax"
	}
	writeback.DstReg = operand(instr.Assignee)
	blk.InsertInstructionAfter(instr, writeback)

	return next
}

// expandUnsignedMul rewrites `dst <- a * b` for an unsigned operand
// into the RAX-staging sequence: a
// MOV of b into RAX, MULB/W/L/Q against a (writing the full product
// into EDX:EAX implicitly), then a writeback MOV of RAX into dst,
// marked non-combinable for the same reason the DIV/MOD writeback is.
// Signed multiply needs none of this — IMUL's two-operand form writes
// its destination directly — so selectOne handles it with a plain
// arithmetic mnemonic.
func expandUnsignedMul(blk *oir.BasicBlock, instr *oir.Instruction, sizes SizeDict) *oir.Instruction {
	sz := sizes.sizeOf(instr.Assignee)

	loadRAX := &oir.Instruction{Kind: oir.StmtAssign, Op1: instr.Op2}
	loadRAX.InstrType = "mov" + sizeSuffix(sz)
	loadRAX.SrcReg = operand(instr.Op2)
	loadRAX.DstReg = "rax"
	blk.InsertInstructionBefore(instr, loadRAX)

	instr.InstrType = "mul" + sizeSuffix(sz)
	instr.SrcReg = operand(instr.Op1)
	instr.DstReg = "rdx:rax"

	next := instr.Next()
	writeback := &oir.Instruction{Kind: oir.StmtAssign, Assignee: instr.Assignee, CannotCombine: true}
	writeback.InstrType = "mov" + sizeSuffix(sz)
	writeback.SrcReg = "rax"
	writeback.DstReg = operand(instr.Assignee)
	blk.InsertInstructionAfter(instr, writeback)

	return next
}

func isShift(op oir.Op) bool {
	return op == oir.OpShl || op == oir.OpShr
}

// stageShiftCount handles the CL requirement: x86-64
// variable shifts take their count in the low byte of RCX. A count
// that is a function parameter lives in a fixed ABI register, so a
// preparatory MOV into a fresh temporary is emitted ahead of the
// shift; the allocator later coalesces the temporary or precolors it
// into CL.
func stageShiftCount(blk *oir.BasicBlock, instr *oir.Instruction, sizes SizeDict) {
	count := instr.Op2
	staged := oir.NewVariable(0, count.Name+".cl", count.Type, true)
	sizes[staged] = 1

	mov := &oir.Instruction{Kind: oir.StmtAssign, Assignee: staged, Op1: count}
	mov.InstrType = "movb"
	mov.SrcReg = operand(count)
	mov.DstReg = staged.Name
	blk.InsertInstructionBefore(instr, mov)

	instr.Op2 = staged
}

// expandBranchFallthrough finishes a two-way branch's lowering: the
// conditional jump covers the Then target, and the Else target needs
// an explicit unconditional JMP unless the linearizer already placed
// it as this block's direct successor — the jump the peephole pass
// would otherwise have deleted is simply never emitted once the
// fall-through is proven.
func expandBranchFallthrough(blk *oir.BasicBlock, instr *oir.Instruction) *oir.Instruction {
	next := instr.Next()
	if instr.Else != nil && blk.DirectSuccessor != instr.Else {
		jmp := oir.EmitJumpInstructionDirectly(instr.Else)
		jmp.InstrType = "jmp"
		blk.InsertInstructionAfter(instr, jmp)
	}
	return next
}

// widenIndirectIndex widens an indirect jump's scaled index to 32
// bits with a converting move when it is narrower, since x86-64
// effective addresses only accept 32- or 64-bit index registers.
func widenIndirectIndex(blk *oir.BasicBlock, instr *oir.Instruction, sizes SizeDict) {
	idx := instr.AddrReg2
	if idx == nil {
		idx = instr.Op1
	}
	if idx == nil || sizes.sizeOf(idx) >= 4 {
		return
	}
	signed := idx.Type != nil && idx.Type.IsSigned()
	widened := oir.NewVariable(0, idx.Name+".idx", nil, true)
	sizes[widened] = 4

	widen := &oir.Instruction{Kind: oir.StmtCast, Op1: idx, Assignee: widened}
	prefix := "movz"
	if signed {
		prefix = "movs"
	}
	widen.InstrType = prefix + sizeSuffix(sizes.sizeOf(idx)) + "l"
	widen.SrcReg = operand(idx)
	widen.DstReg = widened.Name
	blk.InsertInstructionBefore(instr, widen)

	if instr.AddrReg2 != nil {
		instr.AddrReg2 = widened
	} else {
		instr.Op1 = widened
	}
}

// expandLogical lowers a non-short-circuit logical and/or into the
// test+set+and/or+movzx composite: each operand is
// tested against itself and normalized to a 0/1 byte with SETNE, the
// bytes are combined with ANDB/ORB, and the result is zero-extended
// into the assignee's own width. The writeback is marked
// non-combinable like the DIV/MUL writebacks.
func expandLogical(blk *oir.BasicBlock, instr *oir.Instruction, sizes SizeDict) *oir.Instruction {
	ta := oir.NewVariable(0, operand(instr.Op1)+".tst", nil, true)
	tb := oir.NewVariable(0, operand(instr.Op2)+".tst", nil, true)
	sizes[ta] = 1
	sizes[tb] = 1

	emit := func(i *oir.Instruction) { blk.InsertInstructionBefore(instr, i) }

	testA := oir.EmitTestStatement(instr.Op1, instr.Op1)
	testA.InstrType = "test" + sizeSuffix(sizes.sizeOf(instr.Op1))
	testA.SrcReg = operand(instr.Op1)
	testA.DstReg = operand(instr.Op1)
	emit(testA)

	setA := oir.EmitSetCCInstruction(oir.BrNE, ta, false)
	setA.InstrType = "setne"
	setA.DstReg = ta.Name
	emit(setA)

	testB := oir.EmitTestStatement(instr.Op2, instr.Op2)
	testB.InstrType = "test" + sizeSuffix(sizes.sizeOf(instr.Op2))
	testB.SrcReg = operand(instr.Op2)
	testB.DstReg = operand(instr.Op2)
	emit(testB)

	setB := oir.EmitSetCCInstruction(oir.BrNE, tb, false)
	setB.InstrType = "setne"
	setB.DstReg = tb.Name
	emit(setB)

	combine := &oir.Instruction{Kind: oir.StmtBinaryOp, Assignee: tb, Op1: ta, Op2: tb}
	if instr.Op == oir.OpLogicalAnd {
		combine.Op = oir.OpAnd
		combine.InstrType = "andb"
	} else {
		combine.Op = oir.OpOr
		combine.InstrType = "orb"
	}
	combine.SrcReg = ta.Name
	combine.DstReg = tb.Name
	emit(combine)

	next := instr.Next()
	instr.Kind = oir.StmtCast
	instr.Op = oir.OpNone
	instr.Op1 = tb
	instr.Op2 = nil
	instr.CannotCombine = true
	instr.InstrType = "movzb" + sizeSuffix(sizes.sizeOf(instr.Assignee))
	instr.SrcReg = tb.Name
	instr.DstReg = operand(instr.Assignee)
	return next
}

// widenMnemonic picks the sign-extending widen x86-64 uses ahead of
// IDIV, keyed by the dividend's own width. Unsigned division needs RDX cleared instead of
// sign-extended, which has no single canonical mnemonic in this
// model's vocabulary, so it is spelled out descriptively.
func widenMnemonic(signed bool, sz int) string {
	if !signed {
		return "xor-clear-rdx"
	}
	switch sz {
	case 1:
		return "cbw"
	case 2:
		return "cwde"
	case 8:
		return "cqo"
	default:
		return "cdq"
	}
}

func divMnemonic(signed bool, sz int) string {
	if signed {
		return "idiv" + sizeSuffix(sz)
	}
	return "div" + sizeSuffix(sz)
}

func selectOne(instr *oir.Instruction, sizes SizeDict) {
	switch instr.Kind {
	case oir.StmtAssign:
		instr.InstrType = "mov" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtAssignConst:
		instr.InstrType = "mov" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.SrcReg = instr.Op1Const.String()
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtBinaryOp:
		instr.InstrType = binaryMnemonic(instr) + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.SrcReg = operand(instr.Op2)
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtBinaryOpWithConst:
		instr.InstrType = binaryMnemonic(instr) + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.SrcReg = instr.Op2OffsetConst.String()
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtCast:
		instr.InstrType = castMnemonic(instr, sizes)
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtUnaryNegate:
		instr.InstrType = "neg" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.DstReg = operand(instr.Assignee)
		instr.SrcReg = operand(instr.Op1)
	case oir.StmtBitwiseNot:
		instr.InstrType = "not" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.DstReg = operand(instr.Assignee)
		instr.SrcReg = operand(instr.Op1)
	case oir.StmtLogicalNot:
		instr.InstrType = "test" + sizeSuffix(sizes.sizeOf(instr.Op1)) + "+sete"
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtLEA:
		instr.InstrType = "lea" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.DstReg = operand(instr.Assignee)
		instr.SrcReg = operand(instr.AddrReg1)
	case oir.StmtInc:
		instr.InstrType = "inc" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtDec:
		instr.InstrType = "dec" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtTest:
		instr.InstrType = "test" + sizeSuffix(sizes.sizeOf(instr.Op1))
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Op2)
	case oir.StmtCmp:
		instr.InstrType = "cmp" + sizeSuffix(sizes.sizeOf(instr.Op1))
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Op2)
	case oir.StmtLoad, oir.StmtLoadConstOffset, oir.StmtLoadVarOffset:
		instr.InstrType = "mov" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.SrcReg = "[" + operand(instr.AddrReg1) + "]"
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtStore, oir.StmtStoreConstOffset, oir.StmtStoreVarOffset:
		instr.InstrType = "mov" + sizeSuffix(sizes.sizeOf(instr.Op1))
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = "[" + operand(instr.AddrReg1) + "]"
	case oir.StmtMemoryAddress:
		instr.InstrType = "lea" + sizeSuffix(sizes.sizeOf(instr.Assignee))
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtJump:
		instr.InstrType = "jmp"
	case oir.StmtBranch:
		instr.InstrType = "cmp" + sizeSuffix(sizes.sizeOf(instr.Op1)) + "+j" + branchSuffix(instr.Branch)
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Op2)
	case oir.StmtIndirectJump, oir.StmtIndirectJumpAddrCalc:
		instr.InstrType = "jmp"
		instr.SrcReg = operand(instr.Op1)
	case oir.StmtSetCC:
		instr.InstrType = "set" + branchSuffix(instr.Branch)
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtCall:
		instr.InstrType = "call"
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtIndirectCall:
		instr.InstrType = "call"
		instr.SrcReg = operand(instr.Op1)
		instr.DstReg = operand(instr.Assignee)
	case oir.StmtReturn:
		instr.InstrType = "ret"
		instr.SrcReg = operand(instr.Op1)
	case oir.StmtIdle:
		instr.InstrType = "nop"
	case oir.StmtInlineAsm:
		// Passed through untouched.
	}
}

// castMnemonic picks movzb.../movsb... the way x86-64 spells a
// narrower-to-wider extending move, combining the source and
// destination suffixes (e.g. "movzbl" for an unsigned i8 -> i32
// widen) the way `internal/types.IsExpandingMoveRequired` decides one
// is needed in the first place.
func castMnemonic(instr *oir.Instruction, sizes SizeDict) string {
	signed := instr.Op1 != nil && instr.Op1.Type != nil && instr.Op1.Type.IsSigned()
	prefix := "movz"
	if signed {
		prefix = "movs"
	}
	return prefix + sizeSuffix(sizes.sizeOf(instr.Op1)) + sizeSuffix(sizes.sizeOf(instr.Assignee))
}

// binaryMnemonic resolves the base mnemonic for an arithmetic
// instruction, distinguishing the arithmetic (SAL/SAR) from the
// logical (SHL/SHR) shift forms by the left operand's signedness.
func binaryMnemonic(instr *oir.Instruction) string {
	if isShift(instr.Op) {
		signed := instr.Op1 != nil && instr.Op1.Type != nil && instr.Op1.Type.IsSigned()
		switch {
		case instr.Op == oir.OpShl && signed:
			return "sal"
		case instr.Op == oir.OpShl:
			return "shl"
		case signed:
			return "sar"
		default:
			return "shr"
		}
	}
	return arithMnemonic(instr.Op)
}

func arithMnemonic(op oir.Op) string {
	switch op {
	case oir.OpAdd:
		return "add"
	case oir.OpSub:
		return "sub"
	case oir.OpMul:
		return "imul"
	case oir.OpAnd:
		return "and"
	case oir.OpOr:
		return "or"
	case oir.OpXor:
		return "xor"
	case oir.OpShl:
		return "shl"
	case oir.OpShr:
		return "shr"
	}
	return "?"
}

func branchSuffix(k oir.BranchKind) string {
	switch k {
	case oir.BrA:
		return "a"
	case oir.BrAE:
		return "ae"
	case oir.BrB:
		return "b"
	case oir.BrBE:
		return "be"
	case oir.BrE, oir.BrZ:
		return "e"
	case oir.BrNE, oir.BrNZ:
		return "ne"
	case oir.BrG:
		return "g"
	case oir.BrGE:
		return "ge"
	case oir.BrL:
		return "l"
	case oir.BrLE:
		return "le"
	}
	return ""
}
