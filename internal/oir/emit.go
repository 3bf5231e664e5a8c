package oir

// This file groups the typed instruction constructors — convenience
// emitters for assigns, address calcs, tests, jumps, and calls. Each
// builds an Instruction value; callers still append it to a block via
// BasicBlock.AddStatement or splice it via InsertInstructionBefore/
// After.

// EmitAssign builds a plain `dst ← src` instruction.
func EmitAssign(dst, src *Variable) *Instruction {
	return &Instruction{Kind: StmtAssign, Assignee: dst, Op1: src}
}

// EmitAssignConst builds `dst ← c`.
func EmitAssignConst(dst *Variable, c Constant) *Instruction {
	return &Instruction{Kind: StmtAssignConst, Assignee: dst, Op1Const: &c}
}

// EmitBinaryOp builds `dst ← a ⊕ b`.
func EmitBinaryOp(dst, a, b *Variable, op Op) *Instruction {
	return &Instruction{Kind: StmtBinaryOp, Op: op, Assignee: dst, Op1: a, Op2: b}
}

// EmitBinaryOpWithConst builds `dst ← a ⊕ c`.
func EmitBinaryOpWithConst(dst, a *Variable, op Op, c Constant) *Instruction {
	return &Instruction{Kind: StmtBinaryOpWithConst, Op: op, Assignee: dst, Op1: a, Op2OffsetConst: &c}
}

// EmitLEA builds an address-calculation instruction with the given
// mode, base/index registers, constant offset, and scale.
func EmitLEA(dst, base, index *Variable, offset Constant, scale int) *Instruction {
	mode := AddrRegistersOnly
	switch {
	case base != nil && index != nil && scale > 1:
		mode = AddrRegistersPlusOffsetScale
	case base != nil && !offset.IsZero():
		mode = AddrRegistersPlusOffset
	case base == nil && index == nil:
		mode = AddrOffsetOnly
	}
	return &Instruction{
		Kind: StmtLEA, Assignee: dst, AddrReg1: base, AddrReg2: index,
		Op2OffsetConst: &offset, LEAScale: scale, AddrMode: mode,
	}
}

// EmitLoad builds `dst ← [base]`.
func EmitLoad(dst, base *Variable) *Instruction {
	return &Instruction{Kind: StmtLoad, Assignee: dst, AddrReg1: base, AddrMode: AddrDerefSource}
}

// EmitLoadConstOffset builds `dst ← [base + c]`.
func EmitLoadConstOffset(dst, base *Variable, c Constant) *Instruction {
	return &Instruction{Kind: StmtLoadConstOffset, Assignee: dst, AddrReg1: base, Op2OffsetConst: &c, AddrMode: AddrRegistersPlusOffset}
}

// EmitLoadVarOffset builds `dst ← [base + index]`.
func EmitLoadVarOffset(dst, base, index *Variable) *Instruction {
	return &Instruction{Kind: StmtLoadVarOffset, Assignee: dst, AddrReg1: base, AddrReg2: index, AddrMode: AddrRegistersOnly}
}

// EmitStore builds `[base] ← src`.
func EmitStore(base, src *Variable) *Instruction {
	return &Instruction{Kind: StmtStore, Op1: src, AddrReg1: base, AddrMode: AddrDerefDest}
}

// EmitStoreConstOffset builds `[base + c] ← src`.
func EmitStoreConstOffset(base *Variable, c Constant, src *Variable) *Instruction {
	return &Instruction{Kind: StmtStoreConstOffset, Op1: src, AddrReg1: base, Op2OffsetConst: &c, AddrMode: AddrRegistersPlusOffset}
}

// EmitStoreVarOffset builds `[base + index] ← src`.
func EmitStoreVarOffset(base, index, src *Variable) *Instruction {
	return &Instruction{Kind: StmtStoreVarOffset, Op1: src, AddrReg1: base, AddrReg2: index, AddrMode: AddrRegistersOnly}
}

// EmitCmp builds a comparison-only instruction (flags set, no
// assignee): `cmp a, b`.
func EmitCmp(a, b *Variable) *Instruction {
	return &Instruction{Kind: StmtCmp, Op1: a, Op2: b}
}

// EmitTestStatement builds `test a, b`, used ahead of logical-and/or lowering.
func EmitTestStatement(a, b *Variable) *Instruction {
	return &Instruction{Kind: StmtTest, Op1: a, Op2: b}
}

// EmitSetCCInstruction builds a SETcc-style instruction assigning a
// 0/1 byte result based on branch condition, honoring signedness.
func EmitSetCCInstruction(kind BranchKind, dst *Variable, isSigned bool) *Instruction {
	instr := &Instruction{Kind: StmtSetCC, Assignee: dst, Branch: kind}
	if isSigned {
		instr.InstrType = "setcc.signed"
	} else {
		instr.InstrType = "setcc.unsigned"
	}
	return instr
}

// EmitJumpInstructionDirectly builds an unconditional jump to target.
func EmitJumpInstructionDirectly(target *BasicBlock) *Instruction {
	return &Instruction{Kind: StmtJump, Then: target, IsBranchEnding: true}
}

// EmitBranch builds a two-way conditional branch.
func EmitBranch(kind BranchKind, a, b *Variable, thenBlk, elseBlk *BasicBlock) *Instruction {
	return &Instruction{Kind: StmtBranch, Branch: kind, Op1: a, Op2: b, Then: thenBlk, Else: elseBlk, IsBranchEnding: true}
}

// EmitReturn builds a return instruction, optionally carrying a value.
func EmitReturn(value *Variable) *Instruction {
	return &Instruction{Kind: StmtReturn, Op1: value, IsBranchEnding: true}
}

// EmitPhi builds an empty phi instruction for dst with room for
// numPreds operands, which PhiAddOperand appends one predecessor at a
// time.
func EmitPhi(dst *Variable, numPreds int) *Instruction {
	return &Instruction{Kind: StmtPhi, Assignee: dst, Args: make([]*Variable, 0, numPreds)}
}

// PhiAddOperand appends one predecessor's incoming value to a phi
// instruction, in predecessor-block order.
func PhiAddOperand(phi *Instruction, v *Variable) {
	phi.Args = append(phi.Args, v)
}

// EmitCall builds a direct function call.
func EmitCall(dst *Variable, calleeName string, args []*Variable) *Instruction {
	return &Instruction{Kind: StmtCall, Assignee: dst, CalleeName: calleeName, Args: args}
}

// EmitIndirectCall builds a call through a function-pointer variable.
func EmitIndirectCall(dst *Variable, callee *Variable, args []*Variable) *Instruction {
	return &Instruction{Kind: StmtIndirectCall, Assignee: dst, Op1: callee, Args: args}
}

// EmitIdle builds a no-op placeholder instruction.
func EmitIdle() *Instruction {
	return &Instruction{Kind: StmtIdle}
}

// EmitInlineAsm builds an inline-assembly pass-through instruction;
// nanoc's backend never interprets the text, only threads it through.
func EmitInlineAsm(text string) *Instruction {
	return &Instruction{Kind: StmtInlineAsm, CalleeName: text}
}
