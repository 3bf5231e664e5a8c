package oir

import (
	"fmt"
	"strings"
)

var branchMnemonic = map[BranchKind]string{
	BrA: "a", BrAE: "ae", BrB: "b", BrBE: "be",
	BrE: "e", BrNE: "ne", BrZ: "z", BrNZ: "nz",
	BrG: "g", BrGE: "ge", BrL: "l", BrLE: "le",
}

var opSymbol = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpAnd: "&", OpOr: "|", OpXor: "^", OpShl: "<<", OpShr: ">>",
	OpLogicalAnd: "&&", OpLogicalOr: "||",
}

func varName(v *Variable) string {
	if v == nil {
		return "_"
	}
	return v.Name
}

// PrintThreeAddress renders instr in the pre-selection three-address
// form. The format
// is stable across runs so golden tests can match it byte-exact.
func PrintThreeAddress(instr *Instruction) string {
	var b strings.Builder
	switch instr.Kind {
	case StmtAssign:
		fmt.Fprintf(&b, "%s <- %s", varName(instr.Assignee), varName(instr.Op1))
	case StmtAssignConst:
		fmt.Fprintf(&b, "%s <- %s", varName(instr.Assignee), instr.Op1Const.String())
	case StmtBinaryOp:
		fmt.Fprintf(&b, "%s <- %s %s %s", varName(instr.Assignee), varName(instr.Op1), opSymbol[instr.Op], varName(instr.Op2))
	case StmtBinaryOpWithConst:
		fmt.Fprintf(&b, "%s <- %s %s %s", varName(instr.Assignee), varName(instr.Op1), opSymbol[instr.Op], instr.Op2OffsetConst.String())
	case StmtCast:
		fmt.Fprintf(&b, "%s <- cast %s", varName(instr.Assignee), varName(instr.Op1))
	case StmtUnaryNegate:
		fmt.Fprintf(&b, "%s <- -%s", varName(instr.Assignee), varName(instr.Op1))
	case StmtBitwiseNot:
		fmt.Fprintf(&b, "%s <- ~%s", varName(instr.Assignee), varName(instr.Op1))
	case StmtLogicalNot:
		fmt.Fprintf(&b, "%s <- !%s", varName(instr.Assignee), varName(instr.Op1))
	case StmtLEA:
		fmt.Fprintf(&b, "%s <- lea %s", varName(instr.Assignee), addrString(instr))
	case StmtInc:
		fmt.Fprintf(&b, "inc %s", varName(instr.Assignee))
	case StmtDec:
		fmt.Fprintf(&b, "dec %s", varName(instr.Assignee))
	case StmtTest:
		fmt.Fprintf(&b, "test %s, %s", varName(instr.Op1), varName(instr.Op2))
	case StmtCmp:
		fmt.Fprintf(&b, "cmp %s, %s", varName(instr.Op1), varName(instr.Op2))
	case StmtLoad:
		fmt.Fprintf(&b, "%s <- load %s", varName(instr.Assignee), addrString(instr))
	case StmtLoadConstOffset, StmtLoadVarOffset:
		fmt.Fprintf(&b, "%s <- load %s", varName(instr.Assignee), addrString(instr))
	case StmtStore:
		fmt.Fprintf(&b, "store %s <- %s", addrString(instr), varName(instr.Op1))
	case StmtStoreConstOffset, StmtStoreVarOffset:
		fmt.Fprintf(&b, "store %s <- %s", addrString(instr), varName(instr.Op1))
	case StmtMemoryAddress:
		fmt.Fprintf(&b, "%s <- addr %s", varName(instr.Assignee), addrString(instr))
	case StmtJump:
		fmt.Fprintf(&b, "jmp block%d", instr.Then.ID)
	case StmtBranch:
		fmt.Fprintf(&b, "br.%s %s, %s -> block%d else block%d", branchMnemonic[instr.Branch], varName(instr.Op1), varName(instr.Op2), instr.Then.ID, instr.Else.ID)
	case StmtIndirectJump:
		fmt.Fprintf(&b, "jmp *%s", varName(instr.Op1))
	case StmtIndirectJumpAddrCalc:
		fmt.Fprintf(&b, "jmp *%s", addrString(instr))
	case StmtPhi:
		parts := make([]string, len(instr.Args))
		for i, a := range instr.Args {
			parts[i] = varName(a)
		}
		fmt.Fprintf(&b, "%s <- phi(%s)", varName(instr.Assignee), strings.Join(parts, ", "))
	case StmtCall:
		fmt.Fprintf(&b, "%s <- call %s(%s)", varName(instr.Assignee), instr.CalleeName, argList(instr.Args))
	case StmtIndirectCall:
		fmt.Fprintf(&b, "%s <- call *%s(%s)", varName(instr.Assignee), varName(instr.Op1), argList(instr.Args))
	case StmtSetCC:
		fmt.Fprintf(&b, "%s <- set.%s", varName(instr.Assignee), branchMnemonic[instr.Branch])
	case StmtReturn:
		if instr.Op1 != nil {
			fmt.Fprintf(&b, "ret %s", varName(instr.Op1))
		} else {
			b.WriteString("ret")
		}
	case StmtIdle:
		b.WriteString("nop")
	case StmtInlineAsm:
		fmt.Fprintf(&b, "asm %q", instr.CalleeName)
	}
	return b.String()
}

func addrString(instr *Instruction) string {
	switch instr.AddrMode {
	case AddrOffsetOnly:
		return fmt.Sprintf("[%s]", instr.Op2OffsetConst.String())
	case AddrRegistersOnly:
		if instr.AddrReg2 != nil {
			return fmt.Sprintf("[%s+%s]", varName(instr.AddrReg1), varName(instr.AddrReg2))
		}
		return fmt.Sprintf("[%s]", varName(instr.AddrReg1))
	case AddrRegistersPlusOffset:
		return fmt.Sprintf("[%s+%s]", varName(instr.AddrReg1), instr.Op2OffsetConst.String())
	case AddrRegistersPlusOffsetScale:
		return fmt.Sprintf("[%s+%s*%d]", varName(instr.AddrReg1), varName(instr.AddrReg2), instr.LEAScale)
	case AddrGlobalVar:
		return fmt.Sprintf("[%s]", varName(instr.AddrReg1))
	case AddrDerefSource, AddrDerefDest:
		return fmt.Sprintf("[%s]", varName(instr.AddrReg1))
	}
	return "[?]"
}

func argList(args []*Variable) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = varName(a)
	}
	return strings.Join(parts, ", ")
}

// PrintInstruction renders instr in the post-selection instruction
// form: the x86 mnemonic the selector assigned, plus source/
// destination registers. Falls back to the three-address form if the
// instruction has not been through selection yet (InstrType empty),
// which should only happen for diagnostics run mid-pipeline.
func PrintInstruction(instr *Instruction) string {
	if instr.InstrType == "" {
		return PrintThreeAddress(instr)
	}
	switch {
	case instr.SrcReg != "" && instr.DstReg != "":
		return fmt.Sprintf("%s %s, %s", instr.InstrType, instr.SrcReg, instr.DstReg)
	case instr.DstReg != "":
		return fmt.Sprintf("%s %s", instr.InstrType, instr.DstReg)
	default:
		return instr.InstrType
	}
}

// PrintFunction renders every block of fn in block-id order (pre-
// linearization) or DirectSuccessor order (post-linearization) using
// printFn for each instruction.
func PrintFunction(fn *Function, printFn func(*Instruction) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s:\n", fn.Name)
	blocks := fn.Blocks
	for _, blk := range blocks {
		fmt.Fprintf(&b, "block%d:\n", blk.ID)
		for _, instr := range blk.Instructions() {
			fmt.Fprintf(&b, "\t%s\n", printFn(instr))
		}
	}
	return b.String()
}
