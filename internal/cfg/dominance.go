package cfg

import "nanoc/internal/oir"

// ComputeDominance fills in every block's IDom using the Cooper-
// Harvey-Kennedy iterative algorithm, grounded on the dominator
// computation in golang.org/x/tools's SSA lifter: a reverse-postorder
// numbering followed by repeated intersection until a fixed point,
// which converges faster in practice than the classical iterative
// dataflow formulation and needs no bitset per block.
func ComputeDominance(fn *oir.Function) {
	if fn.Entry == nil {
		return
	}
	order := reversePostorder(fn.Entry)
	rpoNumber := make(map[*oir.BasicBlock]int, len(order))
	for i, b := range order {
		rpoNumber[b] = i
	}
	fn.Entry.IDom = fn.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range order[1:] {
			var newIDom *oir.BasicBlock
			for _, p := range b.Preds {
				if p.IDom == nil {
					continue
				}
				if newIDom == nil {
					newIDom = p
					continue
				}
				newIDom = intersect(newIDom, p, rpoNumber)
			}
			if newIDom != nil && b.IDom != newIDom {
				b.IDom = newIDom
				changed = true
			}
		}
	}
	fn.Entry.IDom = nil // the entry block has no dominator, by convention
}

func intersect(a, b *oir.BasicBlock, rpo map[*oir.BasicBlock]int) *oir.BasicBlock {
	for a != b {
		for rpo[a] > rpo[b] {
			a = a.IDom
		}
		for rpo[b] > rpo[a] {
			b = b.IDom
		}
	}
	return a
}

// reversePostorder walks the CFG depth-first from entry and returns
// blocks in reverse postorder, the numbering dominance computation
// needs to converge in one or two passes instead of n.
func reversePostorder(entry *oir.BasicBlock) []*oir.BasicBlock {
	visited := make(map[*oir.BasicBlock]bool)
	var post []*oir.BasicBlock
	var visit func(*oir.BasicBlock)
	visit = func(b *oir.BasicBlock) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	out := make([]*oir.BasicBlock, len(post))
	for i, b := range post {
		out[len(post)-1-i] = b
	}
	return out
}

// ComputeDominanceFrontiers fills in every block's DomFrontier, per
// Cytron, Ferrante, Rosen & Wegman's algorithm: a block b with two or
// more predecessors sits in the dominance frontier of every ancestor
// (in the dominator tree) of each of its predecessors that does not
// also strictly dominate b.
func ComputeDominanceFrontiers(fn *oir.Function) {
	for _, b := range fn.Blocks {
		b.DomFrontier = nil
	}
	for _, b := range fn.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != nil && runner != b.IDom {
				if !hasBlock(runner.DomFrontier, b) {
					runner.DomFrontier = append(runner.DomFrontier, b)
				}
				runner = runner.IDom
			}
		}
	}
}

func hasBlock(list []*oir.BasicBlock, b *oir.BasicBlock) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// domChildren returns, for every block, the blocks it immediately
// dominates — the dominator tree's adjacency, used by the SSA renamer
// to walk the tree instead of the CFG directly.
func domChildren(fn *oir.Function) map[*oir.BasicBlock][]*oir.BasicBlock {
	children := make(map[*oir.BasicBlock][]*oir.BasicBlock)
	for _, b := range fn.Blocks {
		if b.IDom == nil {
			continue
		}
		children[b.IDom] = append(children[b.IDom], b)
	}
	return children
}
