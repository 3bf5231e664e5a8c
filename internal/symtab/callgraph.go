package symtab

import "nanoc/internal/oir"

// CallGraph is the adjacency matrix over function ids plus its
// transitive closure, stored as flat byte
// arrays indexed by row*width+col.
type CallGraph struct {
	width   int
	ids     map[uint64]int // function id -> matrix row/col
	funcs   []*oir.Function
	matrix  []byte
	closure []byte
	built   bool
}

// NewCallGraph builds the adjacency matrix from funcs' CallSet
// fields. Each function must have a unique ID.
func NewCallGraph(funcs []*oir.Function) *CallGraph {
	g := &CallGraph{
		width: len(funcs),
		ids:   make(map[uint64]int, len(funcs)),
		funcs: funcs,
	}
	g.matrix = make([]byte, g.width*g.width)
	for i, f := range funcs {
		g.ids[f.ID] = i
	}
	for _, f := range funcs {
		row := g.ids[f.ID]
		for _, callee := range f.CallSet {
			if col, ok := g.ids[callee.ID]; ok {
				g.matrix[row*g.width+col] = 1
			}
		}
	}
	return g
}

// Calls reports whether caller directly calls callee.
func (g *CallGraph) Calls(caller, callee *oir.Function) bool {
	r, ok1 := g.ids[caller.ID]
	c, ok2 := g.ids[callee.ID]
	if !ok1 || !ok2 {
		return false
	}
	return g.matrix[r*g.width+c] == 1
}

// Close computes the transitive closure via Warshall's algorithm.
func (g *CallGraph) Close() {
	g.closure = make([]byte, len(g.matrix))
	copy(g.closure, g.matrix)
	n := g.width
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if g.closure[i*n+k] == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				if g.closure[k*n+j] == 1 {
					g.closure[i*n+j] = 1
				}
			}
		}
	}
	g.built = true
}

// IsReachable reports whether callee is reachable from caller through
// zero or more calls, using the closed matrix. Close must have been
// called first.
func (g *CallGraph) IsReachable(caller, callee *oir.Function) bool {
	if !g.built {
		panic("symtab: IsReachable called before Close")
	}
	r, ok1 := g.ids[caller.ID]
	c, ok2 := g.ids[callee.ID]
	if !ok1 || !ok2 {
		return false
	}
	return g.closure[r*g.width+c] == 1
}

// IsRecursive reports whether f calls itself, directly or indirectly:
// closure[i][i] == 1.
func (g *CallGraph) IsRecursive(f *oir.Function) bool {
	if !g.built {
		panic("symtab: IsRecursive called before Close")
	}
	i, ok := g.ids[f.ID]
	if !ok {
		return false
	}
	return g.closure[i*g.width+i] == 1
}

// IsDirectlyRecursive reports whether f appears in its own CallSet.
func (g *CallGraph) IsDirectlyRecursive(f *oir.Function) bool {
	return g.Calls(f, f)
}
