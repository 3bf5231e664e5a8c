// Package linearize orders a function's basic blocks into a single
// instruction stream, the shape the instruction selector and
// scheduler (internal/iselect, internal/schedule) both assume: each
// block gets a DirectSuccessor when the block immediately following it
// in the chosen order is also the control-flow target it would fall
// through to, letting the selector drop an explicit jump.
package linearize

import "nanoc/internal/oir"

// Order does a breadth-first walk of fn's CFG from its entry block,
// enqueueing a branch's fall-through-preferred successor (Then) ahead
// of its alternate (Else) so adjacent blocks in the resulting order
// are more often true control-flow neighbors, then rewrites fn.Blocks
// to that order and fills in each block's DirectSuccessor.
func Order(fn *oir.Function) []*oir.BasicBlock {
	if fn.Entry == nil {
		return nil
	}
	visited := make(map[*oir.BasicBlock]bool)
	queue := []*oir.BasicBlock{fn.Entry}
	var order []*oir.BasicBlock

	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if visited[b] {
			continue
		}
		visited[b] = true
		order = append(order, b)
		for _, s := range b.Succs {
			if !visited[s] {
				queue = append(queue, s)
			}
		}
	}

	for i, b := range order {
		if b.IsEmpty() {
			// Nothing to chain a fall-through from; mark it toured so a
			// later pass (e.g. the scheduler) doesn't re-walk it looking
			// for work.
			b.Visited = true
			continue
		}
		if i+1 >= len(order) {
			continue
		}
		next := order[i+1]
		exit := b.Exit()
		switch exit.Kind {
		case oir.StmtJump:
			if exit.Then == next {
				b.DirectSuccessor = next
			}
		case oir.StmtBranch:
			if exit.Then == next || exit.Else == next {
				b.DirectSuccessor = next
			}
		}
	}

	fn.Blocks = order
	return order
}
