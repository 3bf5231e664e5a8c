// Package stackdata implements the function-local and
// parameter-passing stack areas.
// Regions are kept sorted largest-first so that alignment padding is
// minimized, and the area's total size is always realigned to the
// x86-64 ABI's 16-byte stack boundary.
package stackdata

import "nanoc/internal/types"

// Purpose distinguishes the two stack-area flavors.
type Purpose int

const (
	// PurposeLocal backs spills and address-taken locals; it grows
	// downward from the frame pointer.
	PurposeLocal Purpose = iota
	// PurposeParameterPassing backs the 7th-and-beyond parameter of
	// each ABI class; it grows upward from the return address.
	PurposeParameterPassing
)

// Binding records which variable (by id/name only — stackdata does
// not own or import the IR's Variable type, to keep it a leaf
// package) a region backs. The read count lives on Region.
type Binding struct {
	VariableID   uint64
	VariableName string
}

// Region is one slot in an Area: a base offset from the frame
// pointer, a size, the variable(s) currently bound to it, and a read
// count used by spill-cost heuristics.
type Region struct {
	ID        uint64
	Offset    int
	Size      int
	Bindings  []Binding
	ReadCount int
	important bool
}

// MarkImportant prevents the region from being removed by Remove,
// even if every variable backing it is later proven dead.
func (r *Region) MarkImportant() { r.important = true }

// Important reports whether the region was marked non-removable.
func (r *Region) Important() bool { return r.important }

// RecordRead increments the region's read count, used by spill-cost
// heuristics and the allocator's reload insertion.
func (r *Region) RecordRead() { r.ReadCount++ }

// Area is a function's stack data area: a sorted-by-size-descending
// list of regions plus the running total size.
type Area struct {
	Purpose Purpose
	regions []*Region
	total   int
	nextID  uint64
}

// NewArea returns an empty stack data area of the given purpose.
func NewArea(purpose Purpose) *Area {
	return &Area{Purpose: purpose}
}

// Regions returns the area's regions, largest-first.
func (a *Area) Regions() []*Region { return a.regions }

// TotalSize returns the area's current total size in bytes, prior to
// any pending Align call.
func (a *Area) TotalSize() int { return a.total }

// CreateRegionForType sizes a new region to match ty, binary-inserts
// it so the region list stays sorted largest-first, and returns it.
// variableID/variableName identify the first variable bound to the
// region.
func (a *Area) CreateRegionForType(variableID uint64, variableName string, ty *types.Type) *Region {
	r := &Region{
		ID:   a.nextID,
		Size: ty.Size(),
		Bindings: []Binding{{VariableID: variableID, VariableName: variableName}},
	}
	a.nextID++
	a.insertSorted(r)
	a.total += r.Size
	return r
}

// insertSorted performs a binary insertion keeping regions ordered by
// descending size, so tighter types interior-pad less once offsets
// are assigned by Align.
func (a *Area) insertSorted(r *Region) {
	lo, hi := 0, len(a.regions)
	for lo < hi {
		mid := (lo + hi) / 2
		if a.regions[mid].Size < r.Size {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	a.regions = append(a.regions, nil)
	copy(a.regions[lo+1:], a.regions[lo:])
	a.regions[lo] = r
}

// Remove deletes region r from the area, unless it was marked
// important, and compacts the remaining regions' base offsets.
// Returns true if the region was removed.
func (a *Area) Remove(r *Region) bool {
	if r.important {
		return false
	}
	idx := -1
	for i, candidate := range a.regions {
		if candidate == r {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	a.total -= r.Size
	a.regions = append(a.regions[:idx], a.regions[idx+1:]...)
	a.reassignOffsets()
	return true
}

// reassignOffsets recomputes each region's base offset in insertion
// (largest-first) order, keeping base addresses monotonic
// in insertion order.
func (a *Area) reassignOffsets() {
	offset := 0
	for _, r := range a.regions {
		r.Offset = offset
		offset += r.Size
	}
	a.total = offset
}

// Align pads the area's total size up to the next multiple of 16, the
// x86-64 ABI stack alignment requirement, and reassigns offsets so
// they stay consistent with the padded total.
func (a *Area) Align() {
	a.reassignOffsets()
	if rem := a.total % 16; rem != 0 {
		a.total += 16 - rem
	}
}
