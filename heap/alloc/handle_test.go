package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/heap"
)

func TestHandle_NotInitialized(t *testing.T) {
	h, err := NewHandle(StrategyLinkedList)
	require.NoError(t, err)

	assert.False(t, h.Ready())
	assert.Nil(t, h.Memory())
	assert.Nil(t, h.FreeRegions())

	_, err = h.Alloc(WordLayout)
	require.ErrorIs(t, err, ErrNotInitialized)

	assert.Panics(t, func() { h.Dealloc(testHeapStart, WordLayout) })
}

func TestHandle_InitOnce(t *testing.T) {
	h, err := NewHandle(StrategyFixedSizeBlock)
	require.NoError(t, err)
	mem, region := newTestHeap(t, 4096)

	require.NoError(t, h.Init(mem, region))
	assert.True(t, h.Ready())
	assert.Equal(t, region, h.Region())
	assert.Same(t, mem, h.Memory())

	require.ErrorIs(t, h.Init(mem, region), ErrAlreadyInitialized)
}

func TestHandle_InitFailureLeavesHandleUnready(t *testing.T) {
	h, err := NewHandle(StrategyLinkedList)
	require.NoError(t, err)
	mem := heap.NewFlat(testHeapStart, 4096)

	err = h.Init(mem, heap.Region{Start: testHeapStart + 4, Size: 64})
	require.ErrorIs(t, err, ErrBadRegion)
	assert.Contains(t, err.Error(), "linked-list")
	assert.False(t, h.Ready())
}

func TestHandle_RejectsBadLayout(t *testing.T) {
	h, _ := newTestHandle(t, StrategyBump, 4096)

	_, err := h.Alloc(Layout{Size: 8, Align: 3})
	require.ErrorIs(t, err, ErrBadLayout)

	_, err = h.Alloc(Layout{Size: 8, Align: 0})
	require.ErrorIs(t, err, ErrBadLayout)

	assert.Zero(t, h.Stats().AllocCalls, "rejected before reaching the allocator")
}

func TestHandle_AllocDealloc(t *testing.T) {
	forEachStrategy(t, func(t *testing.T, s Strategy) {
		h, mem := newTestHandle(t, s, 4096)
		assert.Equal(t, s, h.Strategy())

		addr, err := h.Alloc(WordLayout)
		require.NoError(t, err)
		mem.Store64(addr, 41)
		assert.Equal(t, uint64(41), mem.Load64(addr))

		h.Dealloc(addr, WordLayout)
		stats := h.Stats()
		assert.Equal(t, 1, stats.AllocCalls)
		assert.Equal(t, 1, stats.DeallocCalls)
		assert.Zero(t, stats.Live)
	})
}

func TestHandle_FreeRegions(t *testing.T) {
	h, _ := newTestHandle(t, StrategyBump, 4096)

	_, err := h.Alloc(mustLayout(t, 100, 8))
	require.NoError(t, err)
	assert.Equal(t, []heap.Region{{Start: testHeapStart + 100, Size: 4096 - 100}}, h.FreeRegions())
}

func TestHandle_Inspect(t *testing.T) {
	h, _ := newTestHandle(t, StrategyFixedSizeBlock, 4096)

	var lengths []int
	h.Inspect(func(a Allocator) {
		fsb, ok := a.(*FixedSizeBlock)
		require.True(t, ok)
		lengths = fsb.ClassLengths()
	})
	assert.Len(t, lengths, numClasses)
}

func TestNewUnknownStrategy(t *testing.T) {
	_, err := New(Strategy(42))
	require.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = NewHandle(Strategy(42))
	require.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "Strategy(42)", Strategy(42).String())
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStrategy("  Linked-List ")
	require.NoError(t, err)
	assert.Equal(t, StrategyLinkedList, got)

	_, err = ParseStrategy("slab")
	require.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStrategyZeroValueIsProductionDefault(t *testing.T) {
	var s Strategy
	assert.Equal(t, StrategyFixedSizeBlock, s)
	assert.Equal(t, StrategyFixedSizeBlock, Strategies()[0])
}
