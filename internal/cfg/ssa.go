package cfg

import (
	"nanoc/internal/cctx"
	"nanoc/internal/oir"
)

// InsertPhis places an (initially empty) phi instruction at the head
// of every block in each variable's iterated dominance frontier,
// Cytron's classical construction: seed a worklist with the
// variable's def blocks, and whenever a block's dominance frontier
// gains a block that does not already have a phi for this variable,
// insert one and add that block to the worklist too. It returns the
// inserted phis keyed by block and surface name so RenameToSSA can
// find them again without re-deriving the frontier.
func InsertPhis(ctx *cctx.Context, fn *oir.Function, vars map[string]*varInfo) map[*oir.BasicBlock]map[string]*oir.Instruction {
	phis := make(map[*oir.BasicBlock]map[string]*oir.Instruction)

	for name, info := range vars {
		hasPhi := make(map[*oir.BasicBlock]bool)
		inWorklist := make(map[*oir.BasicBlock]bool)
		worklist := append([]*oir.BasicBlock{}, info.defBlocks.Slice()...)
		for _, b := range worklist {
			inWorklist[b] = true
		}

		for len(worklist) > 0 {
			b := worklist[0]
			worklist = worklist[1:]
			for _, d := range b.DomFrontier {
				if hasPhi[d] {
					continue
				}
				hasPhi[d] = true

				instr := &oir.Instruction{Kind: oir.StmtPhi, Args: make([]*oir.Variable, len(d.Preds))}
				if leader := d.Leader(); leader != nil {
					d.InsertInstructionBefore(leader, instr)
				} else {
					d.AddStatement(instr)
				}

				if phis[d] == nil {
					phis[d] = make(map[string]*oir.Instruction)
				}
				phis[d][name] = instr

				if !inWorklist[d] {
					inWorklist[d] = true
					worklist = append(worklist, d)
				}
			}
		}
	}
	return phis
}

// RenameToSSA walks the dominator tree from the entry block, replacing
// every use and def of a surface-level local with a freshly minted SSA
// version, and filling in phi operands at each successor as it goes.
// Renaming uses one stack of live versions per variable name, pushed
// on a def (including a phi def) and popped when the renamer backs out
// of the block that pushed it, holding *oir.Variable instead of a bare integer
// since each SSA version is its own Variable value.
func RenameToSSA(ctx *cctx.Context, fn *oir.Function, vars map[string]*varInfo, phis map[*oir.BasicBlock]map[string]*oir.Instruction) {
	slotName := make(map[*oir.Variable]string, len(vars))
	for name, info := range vars {
		slotName[info.template] = name
	}
	stacks := make(map[string][]*oir.Variable, len(vars))
	children := domChildren(fn)

	var walk func(b *oir.BasicBlock)
	walk = func(b *oir.BasicBlock) {
		pushedCount := make(map[string]int)

		if m, ok := phis[b]; ok {
			for name, instr := range m {
				nv := freshVersion(ctx, vars[name].template, instr)
				instr.Assignee = nv
				stacks[name] = append(stacks[name], nv)
				pushedCount[name]++
			}
		}

		for _, instr := range b.Instructions() {
			if instr.Kind == oir.StmtPhi {
				continue
			}
			instr.Op1 = renameOperand(instr.Op1, stacks, slotName)
			instr.Op2 = renameOperand(instr.Op2, stacks, slotName)
			instr.AddrReg1 = renameOperand(instr.AddrReg1, stacks, slotName)
			instr.AddrReg2 = renameOperand(instr.AddrReg2, stacks, slotName)
			for i, a := range instr.Args {
				instr.Args[i] = renameOperand(a, stacks, slotName)
			}
			if instr.Assignee == nil {
				continue
			}
			if name, ok := slotName[instr.Assignee]; ok {
				nv := freshVersion(ctx, vars[name].template, instr)
				instr.Assignee = nv
				stacks[name] = append(stacks[name], nv)
				pushedCount[name]++
			}
		}

		for _, succ := range b.Succs {
			m, ok := phis[succ]
			if !ok {
				continue
			}
			predIndex := -1
			for i, p := range succ.Preds {
				if p == b {
					predIndex = i
					break
				}
			}
			if predIndex < 0 {
				continue
			}
			for name, instr := range m {
				stack := stacks[name]
				if len(stack) == 0 {
					continue
				}
				top := stack[len(stack)-1]
				top.UseCount++
				instr.Args[predIndex] = top
			}
		}

		for _, c := range children[b] {
			walk(c)
		}

		for name, n := range pushedCount {
			stacks[name] = stacks[name][:len(stacks[name])-n]
		}
	}

	if fn.Entry != nil {
		walk(fn.Entry)
	}
}

func freshVersion(ctx *cctx.Context, template *oir.Variable, def *oir.Instruction) *oir.Variable {
	nv := oir.NewVariable(ctx.NextTempID(), template.Name, template.Type, false)
	nv.Def = def
	return nv
}

func renameOperand(v *oir.Variable, stacks map[string][]*oir.Variable, slotName map[*oir.Variable]string) *oir.Variable {
	if v == nil {
		return nil
	}
	name, ok := slotName[v]
	if !ok {
		return v
	}
	stack := stacks[name]
	if len(stack) == 0 {
		return v
	}
	top := stack[len(stack)-1]
	top.UseCount++
	return top
}
