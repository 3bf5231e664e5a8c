package oir

// StmtKind enumerates every OIR statement shape. A single enum with a shared payload
// struct — rather than one Go type per variant — keeps the peephole
// simplifier's and instruction selector's pattern matching exhaustive
// and centralizes the doubly-linked-list bookkeeping.
type StmtKind int

const (
	StmtAssign StmtKind = iota
	StmtAssignConst
	StmtBinaryOp
	StmtBinaryOpWithConst
	StmtCast
	StmtUnaryNegate
	StmtBitwiseNot
	StmtLogicalNot
	StmtLEA
	StmtInc
	StmtDec
	StmtTest
	StmtCmp
	StmtLoad
	StmtLoadConstOffset
	StmtLoadVarOffset
	StmtStore
	StmtStoreConstOffset
	StmtStoreVarOffset
	StmtMemoryAddress
	StmtJump
	StmtBranch
	StmtIndirectJump
	StmtIndirectJumpAddrCalc
	StmtPhi
	StmtCall
	StmtIndirectCall
	StmtSetCC
	StmtReturn
	StmtIdle
	StmtInlineAsm
)

// BranchKind is the one-byte condition code attached to a branch
// instruction.
type BranchKind byte

const (
	BrA BranchKind = iota
	BrAE
	BrB
	BrBE
	BrE
	BrNE
	BrZ
	BrNZ
	BrG
	BrGE
	BrL
	BrLE
)

// AddrMode is one of the x86-64 effective-address forms an
// instruction's memory operand may take.
type AddrMode int

const (
	AddrOffsetOnly AddrMode = iota
	AddrRegistersOnly
	AddrRegistersPlusOffset
	AddrRegistersPlusOffsetScale
	AddrGlobalVar
	AddrDerefSource
	AddrDerefDest
)

// Op is the algebraic/bitwise operator token an instruction folds
// over.
type Op int

const (
	OpNone Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpLogicalAnd
	OpLogicalOr
)

// Instruction is one OIR statement: a node in its parent block's
// doubly-linked instruction list, and (once the data-dependence graph
// is built) a node in that block's DAG.
type Instruction struct {
	Kind StmtKind
	Op   Op

	Assignee *Variable
	Op1      *Variable
	Op2      *Variable

	Op1Const       *Constant
	Op2OffsetConst *Constant

	Branch BranchKind

	// Jump/branch targets. For StmtBranch, Then is the if-target and
	// Else is the fallback target.
	Then *BasicBlock
	Else *BasicBlock

	AddrMode  AddrMode
	AddrReg1  *Variable
	AddrReg2  *Variable
	LEAScale  int

	// InstrType, SrcReg, DstReg are populated by the instruction
	// selector (component J); they are zero through OIR/optimizer/
	// peephole/linearizer passes, except that EmitSetCCInstruction
	// pre-tags a setcc's InstrType with its signedness.
	InstrType string
	SrcReg    string
	DstReg    string

	IsBranchEnding bool
	CannotCombine  bool

	CalleeName string
	Args       []*Variable

	ParentBlock *BasicBlock

	prev *Instruction
	next *Instruction

	DDGPreds []*Instruction
	DDGSuccs []*Instruction
}

// Prev returns the previous instruction in program order, or nil if i
// is its block's leader.
func (i *Instruction) Prev() *Instruction { return i.prev }

// Next returns the next instruction in program order, or nil if i is
// its block's exit statement.
func (i *Instruction) Next() *Instruction { return i.next }
