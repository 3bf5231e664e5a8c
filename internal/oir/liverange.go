package oir

// LiveRange is a set of SSA variables coalesced to share one register
// or one spill slot. The allocator
// (internal/regalloc) builds, colors, and discards these; oir only
// defines the shape so Variable can hold a non-owning pointer to its
// LiveRange without an import cycle between oir and regalloc.
type LiveRange struct {
	ID uint64

	Variables []*Variable

	// Neighbors is the adjacency list; Degree must always equal
	// len(Neighbors).
	Neighbors []*LiveRange

	// MatrixIndex is this range's row/column in the interference
	// matrix, assigned once at matrix materialization.
	MatrixIndex int

	// Register holds the assigned physical register name ("" means
	// unassigned/spilled).
	Register string

	// ParamOrder is the ABI slot (1-based) if this range corresponds
	// to a function parameter passed in a register; 0 otherwise.
	ParamOrder int

	SpillCost       float64
	AssignmentCount int

	Visited bool
}

// NewLiveRange allocates an empty live range.
func NewLiveRange(id uint64) *LiveRange {
	return &LiveRange{ID: id}
}

// Degree returns the live range's interference-neighbor count.
func (lr *LiveRange) Degree() int { return len(lr.Neighbors) }

// HasNeighbor reports whether other is already recorded as
// interfering with lr.
func (lr *LiveRange) HasNeighbor(other *LiveRange) bool {
	for _, n := range lr.Neighbors {
		if n == other {
			return true
		}
	}
	return false
}

// AddNeighbor records other as an interference neighbor of lr if it
// is not already present. Callers are responsible for calling this
// symmetrically on both ranges so the adjacency stays mutual.
func (lr *LiveRange) AddNeighbor(other *LiveRange) {
	if !lr.HasNeighbor(other) {
		lr.Neighbors = append(lr.Neighbors, other)
	}
}

// RemoveNeighbor deletes other from lr's adjacency list, if present.
func (lr *LiveRange) RemoveNeighbor(other *LiveRange) {
	for i, n := range lr.Neighbors {
		if n == other {
			lr.Neighbors = append(lr.Neighbors[:i], lr.Neighbors[i+1:]...)
			return
		}
	}
}

// AddVariable binds v to this live range and points v.LiveRange back
// at it.
func (lr *LiveRange) AddVariable(v *Variable) {
	lr.Variables = append(lr.Variables, v)
	v.LiveRange = lr
}
