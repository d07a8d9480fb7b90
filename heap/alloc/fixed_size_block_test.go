package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/heap"
)

func newTestFixedSizeBlock(t *testing.T, size uintptr) (*FixedSizeBlock, *heap.Flat) {
	t.Helper()
	fsb := NewFixedSizeBlock()
	mem, region := newTestHeap(t, size)
	require.NoError(t, fsb.Init(mem, region))
	return fsb, mem
}

func TestClassIndex(t *testing.T) {
	tests := []struct {
		name  string
		l     Layout
		class uintptr // 0 means fallback
	}{
		{"empty", Layout{Size: 0, Align: 1}, 8},
		{"byte", Layout{Size: 1, Align: 1}, 8},
		{"word", WordLayout, 8},
		{"just over a word", Layout{Size: 9, Align: 1}, 16},
		{"align wins", Layout{Size: 8, Align: 16}, 16},
		{"no 512 class", Layout{Size: 300, Align: 8}, 1024},
		{"exactly 512", Layout{Size: 512, Align: 8}, 1024},
		{"largest class", Layout{Size: 2048, Align: 8}, 2048},
		{"too big", Layout{Size: 2049, Align: 8}, 0},
		{"over-aligned", Layout{Size: 8, Align: 4096}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			idx, ok := classIndex(tc.l)
			if tc.class == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.class, blockSizes[idx])
		})
	}
}

func TestBlockSizes(t *testing.T) {
	sizes := BlockSizes()
	assert.Equal(t, []uintptr{8, 16, 32, 64, 128, 256, 1024, 2048}, sizes)

	sizes[0] = 1
	assert.Equal(t, uintptr(8), BlockSizes()[0], "returned slice is a copy")
}

// TestFixedSizeBlock_RefillThenReuse tests that an empty class is refilled
// from the fallback once and a freed block is then reused without it.
func TestFixedSizeBlock_RefillThenReuse(t *testing.T) {
	fsb, _ := newTestFixedSizeBlock(t, 4096)

	addr, err := fsb.Alloc(WordLayout)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, addr)

	stats := fsb.Stats()
	assert.Equal(t, 1, stats.ClassRefills)
	assert.Equal(t, 1, stats.FallbackAllocs)

	fsb.Dealloc(addr, WordLayout)
	assert.Equal(t, []int{1, 0, 0, 0, 0, 0, 0, 0}, fsb.ClassLengths())

	again, err := fsb.Alloc(mustLayout(t, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, addr, again, "3-byte request served from the 8-byte class")

	stats = fsb.Stats()
	assert.Equal(t, 1, stats.ClassRefills)
	assert.Equal(t, 1, stats.FallbackAllocs)
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0, 0}, fsb.ClassLengths())
}

// TestFixedSizeBlock_ClassListsAreSelfSustaining tests that once a class has
// one block, alloc/free cycles on it never touch the fallback again.
func TestFixedSizeBlock_ClassListsAreSelfSustaining(t *testing.T) {
	for _, size := range BlockSizes() {
		fsb, _ := newTestFixedSizeBlock(t, testHeapSize)
		l := mustLayout(t, size, 1)

		first, err := fsb.Alloc(l)
		require.NoError(t, err)
		fsb.Dealloc(first, l)
		before := fsb.Stats().FallbackAllocs

		for range 100 {
			addr, err := fsb.Alloc(l)
			require.NoError(t, err)
			require.Equal(t, first, addr, "class %d", size)
			fsb.Dealloc(addr, l)
		}
		assert.Equal(t, before, fsb.Stats().FallbackAllocs, "class %d", size)
	}
}

// TestFixedSizeBlock_BlocksAlignedToClass tests that a refill block is aligned
// to its class size even when the caller asked for less.
func TestFixedSizeBlock_BlocksAlignedToClass(t *testing.T) {
	fsb, _ := newTestFixedSizeBlock(t, testHeapSize)

	_, err := fsb.Alloc(WordLayout)
	require.NoError(t, err)

	addr, err := fsb.Alloc(mustLayout(t, 1500, 8))
	require.NoError(t, err)
	assert.Equal(t, testHeapStart+2048, addr)
	assert.Zero(t, addr%2048)
}

// TestFixedSizeBlock_LargeRequestsUseFallback tests that requests above the
// largest class bypass the class lists in both directions.
func TestFixedSizeBlock_LargeRequestsUseFallback(t *testing.T) {
	fsb, _ := newTestFixedSizeBlock(t, testHeapSize)
	l := mustLayout(t, 4096, 8)

	addr, err := fsb.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, addr)

	stats := fsb.Stats()
	assert.Equal(t, 1, stats.FallbackAllocs)
	assert.Zero(t, stats.ClassRefills)

	fsb.Dealloc(addr, l)
	stats = fsb.Stats()
	assert.Equal(t, 1, stats.FallbackDeallocs)
	assert.Equal(t, make([]int, numClasses), fsb.ClassLengths())
	assert.Equal(t, testHeapSize, fsb.Fallback().FreeBytes())
}

// TestFixedSizeBlock_ClassMemoryIsNeverReturned tests that blocks parked on
// one class list cannot serve another class once the fallback is exhausted.
func TestFixedSizeBlock_ClassMemoryIsNeverReturned(t *testing.T) {
	fsb, _ := newTestFixedSizeBlock(t, 1024)
	l := mustLayout(t, 64, 64)

	var blocks []uintptr
	for range 16 {
		addr, err := fsb.Alloc(l)
		require.NoError(t, err)
		blocks = append(blocks, addr)
	}
	_, err := fsb.Alloc(l)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Empty(t, fsb.FreeRegions())

	for _, addr := range blocks {
		fsb.Dealloc(addr, l)
	}
	assert.Equal(t, 16, fsb.ClassLengths()[3])

	_, err = fsb.Alloc(mustLayout(t, 32, 32))
	require.ErrorIs(t, err, ErrNoSpace, "the 64 class keeps its blocks")

	addr, err := fsb.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, blocks[len(blocks)-1], addr, "last freed is first reused")

	stats := fsb.Stats()
	assert.Equal(t, 2, stats.AllocFailures)
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, int64(64), stats.BytesInUse)
	assert.Equal(t, int64(1024), stats.PeakBytesInUse)
}

func TestFixedSizeBlock_CorruptedClassLinkPanics(t *testing.T) {
	fsb, mem := newTestFixedSizeBlock(t, 4096)

	addr, err := fsb.Alloc(WordLayout)
	require.NoError(t, err)
	fsb.Dealloc(addr, WordLayout)

	mem.Store64(addr, uint64(testHeapStart+8192)) // outside the heap
	requireInvariantPanic(t, func() {
		_, _ = fsb.Alloc(WordLayout)
	})
}

func TestFixedSizeBlock_MisalignedDeallocPanics(t *testing.T) {
	fsb, _ := newTestFixedSizeBlock(t, 4096)
	requireInvariantPanic(t, func() {
		fsb.Dealloc(testHeapStart+8, mustLayout(t, 64, 64))
	})
}

func TestFixedSizeBlock_Init(t *testing.T) {
	mem := heap.NewFlat(testHeapStart, 4096)

	fsb := NewFixedSizeBlock()
	require.ErrorIs(t, fsb.Init(mem, heap.Region{Start: testHeapStart + 1, Size: 64}), ErrBadRegion)

	fsb = NewFixedSizeBlock()
	require.NoError(t, fsb.Init(mem, mem.Region()))
	require.ErrorIs(t, fsb.Init(mem, mem.Region()), ErrAlreadyInitialized)
	assert.Equal(t, []heap.Region{mem.Region()}, fsb.FreeRegions())
}
