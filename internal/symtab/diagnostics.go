package symtab

import (
	"fmt"

	"nanoc/internal/container"
	"nanoc/internal/oir"
)

// WarningCase classifies one of the unused-function and
// unused-variable diagnostics.
type WarningCase int

const (
	WarnNeverDefinedNeverCalled WarningCase = iota
	WarnDefinedNeverCalled                  // private functions only
	WarnCalledNeverDefined
	WarnUninitializedVariable // non-address-typed only
	WarnMutableNeverMutated
)

// Warning is one diagnostic, ready to be formatted once drained from
// the priority queue in source order.
type Warning struct {
	Case WarningCase
	Name string
	Line int
}

func (w Warning) String() string {
	switch w.Case {
	case WarnNeverDefinedNeverCalled:
		return fmt.Sprintf("%d: warning: function %q is never defined and never called", w.Line, w.Name)
	case WarnDefinedNeverCalled:
		return fmt.Sprintf("%d: warning: private function %q is defined but never called", w.Line, w.Name)
	case WarnCalledNeverDefined:
		return fmt.Sprintf("%d: warning: function %q is called but never defined", w.Line, w.Name)
	case WarnUninitializedVariable:
		return fmt.Sprintf("%d: warning: variable %q is used before initialization", w.Line, w.Name)
	case WarnMutableNeverMutated:
		return fmt.Sprintf("%d: warning: variable %q is declared mutable but never mutated", w.Line, w.Name)
	}
	return fmt.Sprintf("%d: warning: %q", w.Line, w.Name)
}

// CollectFunctionWarnings enqueues every offending function record
// into a min-priority queue keyed on line number, then drains it so
// warnings come out in source order.
func CollectFunctionWarnings(funcs []*oir.Function) []Warning {
	q := container.NewMinHeap[oir.Function]()
	caseOf := make(map[*oir.Function]WarningCase)
	for _, f := range funcs {
		switch {
		case !f.Defined && !f.Called:
			caseOf[f] = WarnNeverDefinedNeverCalled
		case f.Defined && !f.Called && !f.Public:
			caseOf[f] = WarnDefinedNeverCalled
		case f.Called && !f.Defined:
			caseOf[f] = WarnCalledNeverDefined
		default:
			continue
		}
		q.Push(f.Line, f)
	}
	out := make([]Warning, 0, q.Len())
	for q.Len() > 0 {
		line, f := q.Pop()
		out = append(out, Warning{Case: caseOf[f], Name: f.Name, Line: line})
	}
	return out
}

// VariableDiagnosticInput carries the two facts about a variable that
// CollectVariableWarnings cannot derive from oir.Variable alone:
// whether it was read before any defining instruction ran, and
// whether a declared-mutable variable was ever the assignee of a
// second instruction after its declaration.
type VariableDiagnosticInput struct {
	Var             *oir.Variable
	Line            int
	UsedUninit      bool
	DeclaredMutable bool
	EverMutated     bool
}

// CollectVariableWarnings mirrors CollectFunctionWarnings for the two
// variable-level cases: uninitialized use (skipped for address-taken
// variables, since those are legitimately read through a pointer
// before any direct store) and declared-mutable-never-mutated.
func CollectVariableWarnings(inputs []VariableDiagnosticInput) []Warning {
	q := container.NewMinHeap[VariableDiagnosticInput]()
	caseOf := make(map[*VariableDiagnosticInput]WarningCase)
	owned := make([]*VariableDiagnosticInput, 0, len(inputs))
	for i := range inputs {
		in := &inputs[i]
		isAddressTyped := in.Var.Membership == oir.MemberStructField || in.Var.Region != nil
		switch {
		case in.UsedUninit && !isAddressTyped:
			caseOf[in] = WarnUninitializedVariable
		case in.DeclaredMutable && !in.EverMutated:
			caseOf[in] = WarnMutableNeverMutated
		default:
			continue
		}
		owned = append(owned, in)
		q.Push(in.Line, in)
	}
	out := make([]Warning, 0, q.Len())
	for q.Len() > 0 {
		line, in := q.Pop()
		out = append(out, Warning{Case: caseOf[in], Name: in.Var.Name, Line: line})
	}
	return out
}
