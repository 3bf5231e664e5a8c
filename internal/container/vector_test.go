package container

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorAppendPopBack(t *testing.T) {
	v := NewVector[int]()
	a, b, c := 1, 2, 3
	v.Append(&a)
	v.Append(&b)
	v.Append(&c)
	require.Equal(t, 3, v.Len())
	assert.Same(t, &c, v.PopBack())
	assert.Equal(t, 2, v.Len())
}

func TestVectorPopBackOnEmptyPanics(t *testing.T) {
	v := NewVector[int]()
	assert.Panics(t, func() { v.PopBack() })
}

func TestVectorDeleteAtShiftsLeft(t *testing.T) {
	v := NewVector[int]()
	vals := []int{10, 20, 30, 40}
	for i := range vals {
		v.Append(&vals[i])
	}
	v.DeleteAt(1)
	require.Equal(t, 3, v.Len())
	assert.Equal(t, 10, *v.At(0))
	assert.Equal(t, 30, *v.At(1))
	assert.Equal(t, 40, *v.At(2))
}

func TestVectorContains(t *testing.T) {
	v := NewVector[int]()
	a, b := 1, 2
	v.Append(&a)
	assert.Equal(t, 0, v.Contains(&a))
	assert.Equal(t, NotFound, v.Contains(&b))
}

func TestVectorCloneIsDeep(t *testing.T) {
	v := NewVector[int]()
	a := 1
	v.Append(&a)
	clone := v.Clone()
	extra := 2
	clone.Append(&extra)
	assert.Equal(t, 1, v.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestVectorCloneEqualsOriginal(t *testing.T) {
	v := NewVector[int]()
	a, b := 1, 2
	v.Append(&a)
	v.Append(&b)
	clone := v.Clone()
	assert.True(t, v.EqualAsSet(clone))
	if diff := cmp.Diff(v.Slice(), clone.Slice()); diff != "" {
		t.Errorf("clone diverged from original (-want +got):\n%s", diff)
	}
}

func TestVectorEqualAsSetIsOrderInsensitive(t *testing.T) {
	v1, v2 := NewVector[int](), NewVector[int]()
	a, b := 1, 2
	v1.Append(&a)
	v1.Append(&b)
	v2.Append(&b)
	v2.Append(&a)
	assert.True(t, v1.EqualAsSet(v2))
}

func TestPointerSetNoDuplicates(t *testing.T) {
	s := NewPointerSet[int]()
	a := 1
	assert.True(t, s.Add(&a))
	assert.False(t, s.Add(&a))
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Remove(&a))
	assert.Equal(t, 0, s.Len())
}

func TestNestingStackFrequency(t *testing.T) {
	n := NewNestingStack()
	n.Push(NestFunction)
	n.Push(NestLoop)
	assert.Equal(t, uint64(10), n.EstimatedFrequency())
	n.Push(NestIf)
	assert.Equal(t, uint64(5), n.EstimatedFrequency())
	n.Push(NestDefer)
	assert.Equal(t, uint64(1), n.EstimatedFrequency())
}

func TestNestingStackPopOnEmptyPanics(t *testing.T) {
	n := NewNestingStack()
	assert.Panics(t, func() { n.Pop() })
}

func TestMinHeapOrdering(t *testing.T) {
	h := NewMinHeap[string]()
	a, b := "low", "mid"
	zero := "zero"
	h.Push(5, &a)
	h.Push(0, &zero)
	h.Push(2, &b)
	p, item := h.Pop()
	assert.Equal(t, 0, p)
	assert.Same(t, &zero, item)
	p, item = h.Pop()
	assert.Equal(t, 2, p)
	assert.Same(t, &b, item)
	p, item = h.Pop()
	assert.Equal(t, 5, p)
	assert.Same(t, &a, item)
}

func TestMaxHeapOrdering(t *testing.T) {
	h := NewMaxHeap[string]()
	a, b, zero := "a", "b", "zero"
	h.Push(5, &a)
	h.Push(0, &zero)
	h.Push(9, &b)
	p, item := h.Pop()
	assert.Equal(t, 9, p)
	assert.Same(t, &b, item)
}

func TestHeapPopOnEmptyPanics(t *testing.T) {
	assert.Panics(t, func() { NewMinHeap[int]().Pop() })
	assert.Panics(t, func() { NewMaxHeap[int]().Pop() })
}
