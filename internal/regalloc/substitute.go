package regalloc

import (
	"fmt"
	"regexp"

	"nanoc/internal/oir"
)

// resolvedText is the final operand text for v once allocation has
// run: its assigned physical register, its frame-relative stack slot
// if it was spilled, or the fixed mnemonic for a reserved pointer
// register.
func resolvedText(v *oir.Variable) string {
	switch v.Name {
	case "fp":
		return "rbp"
	case "sp":
		return "rsp"
	}
	if v.LiveRange != nil && v.LiveRange.Register != "" {
		return v.LiveRange.Register
	}
	if v.Region != nil {
		if v.Region.Offset == 0 {
			return "[rbp]"
		}
		return fmt.Sprintf("[rbp-%d]", v.Region.Offset)
	}
	return v.Name
}

// operandVariables returns every Variable instr's selected form could
// have embedded a name placeholder for.
func operandVariables(instr *oir.Instruction) []*oir.Variable {
	var out []*oir.Variable
	add := func(v *oir.Variable) {
		if v != nil {
			out = append(out, v)
		}
	}
	add(instr.Op1)
	add(instr.Op2)
	add(instr.Assignee)
	add(instr.AddrReg1)
	add(instr.AddrReg2)
	for _, a := range instr.Args {
		add(a)
	}
	return out
}

// Substitute rewrites every instruction's selected SrcReg/DstReg text,
// replacing each operand Variable's surface name (the placeholder
// internal/iselect left behind, per its own doc comment) with the
// register or stack-slot text allocation assigned it. This is the
// final step of allocation: selection and allocation stay separate
// passes, and this is where their outputs are stitched together.
func Substitute(fn *oir.Function) {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instructions() {
			substituteInstruction(instr)
		}
	}
}

func substituteInstruction(instr *oir.Instruction) {
	seen := make(map[string]bool)
	for _, v := range operandVariables(instr) {
		if v.Name == "" || seen[v.Name] {
			continue
		}
		seen[v.Name] = true
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(v.Name) + `\b`)
		text := resolvedText(v)
		instr.SrcReg = pattern.ReplaceAllString(instr.SrcReg, text)
		instr.DstReg = pattern.ReplaceAllString(instr.DstReg, text)
	}
}
