package stackdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nanoc/internal/types"
)

func TestRegionsSortedLargestFirst(t *testing.T) {
	area := NewArea(PurposeLocal)
	area.CreateRegionForType(1, "a", types.Basic(types.I8, true))
	area.CreateRegionForType(2, "b", types.Basic(types.I64, true))
	area.CreateRegionForType(3, "c", types.Basic(types.I16, true))

	regions := area.Regions()
	require.Len(t, regions, 3)
	for i := 1; i < len(regions); i++ {
		assert.GreaterOrEqual(t, regions[i-1].Size, regions[i].Size)
	}
}

func TestAlignPadsToSixteen(t *testing.T) {
	area := NewArea(PurposeLocal)
	area.CreateRegionForType(1, "a", types.Basic(types.I32, true)) // 4 bytes
	area.Align()
	assert.Equal(t, 0, area.TotalSize()%16)
	assert.Equal(t, 16, area.TotalSize())
}

func TestRemoveCompactsOffsets(t *testing.T) {
	area := NewArea(PurposeLocal)
	r1 := area.CreateRegionForType(1, "a", types.Basic(types.I64, true))
	r2 := area.CreateRegionForType(2, "b", types.Basic(types.I64, true))
	area.Align()
	assert.True(t, area.Remove(r1))
	area.Align()
	assert.Equal(t, 0, r2.Offset)
	assert.Equal(t, 16, area.TotalSize())
}

func TestImportantRegionCannotBeRemoved(t *testing.T) {
	area := NewArea(PurposeLocal)
	r := area.CreateRegionForType(1, "a", types.Basic(types.I64, true))
	r.MarkImportant()
	assert.False(t, area.Remove(r))
	assert.Len(t, area.Regions(), 1)
}

func TestBaseOffsetsMonotonicAfterAlignment(t *testing.T) {
	area := NewArea(PurposeLocal)
	area.CreateRegionForType(1, "a", types.Basic(types.I64, true))
	area.CreateRegionForType(2, "b", types.Basic(types.I32, true))
	area.CreateRegionForType(3, "c", types.Basic(types.I8, true))
	area.Align()
	regions := area.Regions()
	for i := 1; i < len(regions); i++ {
		assert.Greater(t, regions[i].Offset, regions[i-1].Offset)
	}
	assert.Equal(t, 0, area.TotalSize()%16)
}
