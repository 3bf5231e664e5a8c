package linearize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/oir"
)

func TestOrderSetsDirectSuccessorOnFallThrough(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	entry := oir.NewBlock(0, fn)
	thenBlk := oir.NewBlock(1, fn)
	elseBlk := oir.NewBlock(2, fn)
	fn.Entry = entry

	entry.AddSuccessor(thenBlk)
	entry.AddSuccessor(elseBlk)
	entry.AddStatement(oir.EmitBranch(oir.BrE, nil, nil, thenBlk, elseBlk))
	thenBlk.AddStatement(oir.EmitReturn(nil))
	elseBlk.AddStatement(oir.EmitReturn(nil))

	order := Order(fn)
	require.Len(t, order, 3)
	assert.Same(t, entry, order[0])
	assert.Same(t, thenBlk, entry.DirectSuccessor)
}

func TestOrderIsIdempotent(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	entry := oir.NewBlock(0, fn)
	thenBlk := oir.NewBlock(1, fn)
	elseBlk := oir.NewBlock(2, fn)
	fn.Entry = entry

	entry.AddSuccessor(thenBlk)
	entry.AddSuccessor(elseBlk)
	entry.AddStatement(oir.EmitBranch(oir.BrNE, nil, nil, thenBlk, elseBlk))
	thenBlk.AddStatement(oir.EmitReturn(nil))
	elseBlk.AddStatement(oir.EmitReturn(nil))

	first := Order(fn)
	second := Order(fn)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Same(t, first[i], second[i])
	}
}

func TestOrderMarksEmptyBlockVisitedWithoutChaining(t *testing.T) {
	fn := oir.NewFunction(0, "f", nil)
	entry := oir.NewBlock(0, fn)
	empty := oir.NewBlock(1, fn)
	fn.Entry = entry
	entry.AddStatement(oir.EmitJumpInstructionDirectly(empty))
	entry.AddSuccessor(empty)

	Order(fn)
	assert.True(t, empty.Visited)
	assert.Nil(t, empty.DirectSuccessor)
}
