package oir

import (
	"nanoc/internal/stackdata"
	"nanoc/internal/types"
)

// Membership classifies where a Variable lives.
type Membership int

const (
	MemberLocal Membership = iota
	MemberParameter
	MemberGlobal
	MemberLabel
	MemberStructField
	MemberEnumConstant
)

// Variable is an SSA variable. Its
// defining instruction is fixed for its lifetime once set by the CFG
// builder or the SSA renamer; RenameStack is scratch space the SSA
// renamer uses while walking the dominator tree and is empty again
// once renaming completes.
type Variable struct {
	ID          uint64
	Name        string
	Type        *types.Type
	Generation  int
	RenameStack []int

	DeclaringFunction *Function
	Membership        Membership

	// Region is set once the variable is materialized in memory
	// (spilled, address-taken, or a >6th ABI parameter).
	Region *stackdata.Region

	// ParamIndex is 1-based; 0 means "not a parameter".
	ParamIndex int

	LiveRange *LiveRange

	UseCount  int
	Temporary bool

	Def *Instruction
}

// NewVariable allocates a fresh SSA variable. Use ctx.NextTempID for
// compiler-introduced temporaries.
func NewVariable(id uint64, name string, ty *types.Type, temporary bool) *Variable {
	return &Variable{ID: id, Name: name, Type: ty, Temporary: temporary}
}

// IsParameter reports whether this variable backs a function
// parameter.
func (v *Variable) IsParameter() bool { return v.ParamIndex > 0 }

// RecountUses recomputes every variable's UseCount across fn from the
// operand positions that actually read it, including phi arguments.
// Passes that add or delete reads (the optimizer, the peephole
// simplifier, spill insertion) run this before consulting UseCount so
// the substitutability and dead-code checks never act on stale counts.
func RecountUses(fn *Function) {
	counts := make(map[*Variable]int)
	for _, blk := range fn.Blocks {
		for i := blk.Leader(); i != nil; i = i.Next() {
			if i.Assignee != nil {
				if _, ok := counts[i.Assignee]; !ok {
					counts[i.Assignee] = 0
				}
			}
			for _, v := range [...]*Variable{i.Op1, i.Op2, i.AddrReg1, i.AddrReg2} {
				if v != nil {
					counts[v]++
				}
			}
			for _, a := range i.Args {
				if a != nil {
					counts[a]++
				}
			}
		}
	}
	for v, n := range counts {
		v.UseCount = n
	}
}

// Substitutable reports whether v may be folded away by the peephole
// simplifier in place of its defining value: it must be a compiler
// temporary used at most once.
func (v *Variable) Substitutable() bool {
	return v.Temporary && v.UseCount <= 1
}
