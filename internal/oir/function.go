package oir

import (
	"nanoc/internal/stackdata"
	"nanoc/internal/types"
)

// Function is one compiled function: name, visibility,
// parameters, owned basic blocks, call set, and the two stack data
// areas it owns (local, and parameter-passing for its own >6th
// parameters).
type Function struct {
	ID   uint64
	Name string

	Public  bool
	Inlined bool

	Params []*Variable
	Return *types.Type

	Signature *types.Type

	Blocks []*BasicBlock
	Entry  *BasicBlock

	// CallSet holds the other functions this one calls, by pointer —
	// the call graph (internal/symtab) turns this into the adjacency
	// matrix and its transitive closure.
	CallSet []*Function

	Locals     *stackdata.Area
	ParamArea  *stackdata.Area

	// FramePointer is the shared sentinel Variable spill load/stores
	// (internal/regalloc) address through; lazily created on first
	// spill, nil for functions that never spill.
	FramePointer *Variable

	Line int

	Called  bool
	Defined bool
}

// NewFunction allocates a function record with its two stack areas
// ready to receive regions.
func NewFunction(id uint64, name string, sig *types.Type) *Function {
	return &Function{
		ID:        id,
		Name:      name,
		Signature: sig,
		Locals:    stackdata.NewArea(stackdata.PurposeLocal),
		ParamArea: stackdata.NewArea(stackdata.PurposeParameterPassing),
	}
}

// Calls records that f calls callee, if not already recorded.
func (f *Function) Calls(callee *Function) {
	for _, c := range f.CallSet {
		if c == callee {
			return
		}
	}
	f.CallSet = append(f.CallSet, callee)
}
