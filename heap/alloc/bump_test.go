package alloc

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/heap"
)

func newTestBump(t *testing.T, size uintptr) *Bump {
	t.Helper()
	b := NewBump()
	mem, region := newTestHeap(t, size)
	require.NoError(t, b.Init(mem, region))
	return b
}

// TestBump_SequentialAllocs tests that allocations are handed out back to back.
func TestBump_SequentialAllocs(t *testing.T) {
	b := newTestBump(t, 4096)

	first, err := b.Alloc(WordLayout)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart, first, "first allocation starts the heap")

	second, err := b.Alloc(mustLayout(t, 24, 8))
	require.NoError(t, err)
	assert.Equal(t, testHeapStart+8, second)

	third, err := b.Alloc(WordLayout)
	require.NoError(t, err)
	assert.Equal(t, testHeapStart+32, third)
}

// TestBump_Alignment tests that the pointer is rounded up before each allocation.
func TestBump_Alignment(t *testing.T) {
	b := newTestBump(t, 4096)

	_, err := b.Alloc(mustLayout(t, 1, 1))
	require.NoError(t, err)

	addr, err := b.Alloc(mustLayout(t, 16, 64))
	require.NoError(t, err)
	assert.Equal(t, testHeapStart+64, addr, "one byte in, a 64-aligned request skips to +64")
}

// TestBump_ResetsWhenEmpty checks that n allocations followed by n deallocations
// leave the next allocation at the heap start, for several n.
func TestBump_ResetsWhenEmpty(t *testing.T) {
	for _, n := range []int{0, 1, 2, 17, 500} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			b := newTestBump(t, testHeapSize)

			l := mustLayout(t, 24, 8)
			addrs := make([]uintptr, 0, n)
			for i := range n {
				addr, err := b.Alloc(l)
				require.NoError(t, err, "alloc %d", i)
				addrs = append(addrs, addr)
			}
			for _, addr := range addrs {
				b.Dealloc(addr, l)
			}

			addr, err := b.Alloc(WordLayout)
			require.NoError(t, err)
			assert.Equal(t, testHeapStart, addr)
		})
	}
}

// TestBump_NoReuseWhileLive tests that freed memory is not reused while
// other allocations are still live.
func TestBump_NoReuseWhileLive(t *testing.T) {
	b := newTestBump(t, 4096)

	_, err := b.Alloc(WordLayout)
	require.NoError(t, err)
	freed, err := b.Alloc(WordLayout)
	require.NoError(t, err)
	b.Dealloc(freed, WordLayout)

	next, err := b.Alloc(WordLayout)
	require.NoError(t, err)
	assert.Greater(t, next, freed, "bump must not reuse a block while the heap is not empty")
}

func TestBump_Exhaustion(t *testing.T) {
	b := newTestBump(t, 256)

	addr, err := b.Alloc(mustLayout(t, 256, 8))
	require.NoError(t, err, "an allocation of exactly the heap size fits")
	assert.Equal(t, testHeapStart, addr)

	_, err = b.Alloc(mustLayout(t, 1, 1))
	require.ErrorIs(t, err, ErrNoSpace)

	// Overflowing end address must fail, not wrap.
	_, err = b.Alloc(Layout{Size: ^uintptr(0) - 15, Align: 8})
	require.ErrorIs(t, err, ErrNoSpace)

	stats := b.Stats()
	assert.Equal(t, 3, stats.AllocCalls)
	assert.Equal(t, 2, stats.AllocFailures)
	assert.Equal(t, 1, stats.Live)
	assert.Equal(t, int64(256), stats.BytesInUse)
}

func TestBump_FreeRegions(t *testing.T) {
	b := newTestBump(t, 4096)

	_, err := b.Alloc(mustLayout(t, 1000, 8))
	require.NoError(t, err)
	assert.Equal(t, []heap.Region{{Start: testHeapStart + 1000, Size: 3096}}, b.FreeRegions())
}

func TestBump_DeallocWithoutAllocPanics(t *testing.T) {
	b := newTestBump(t, 4096)
	requireInvariantPanic(t, func() {
		b.Dealloc(testHeapStart, WordLayout)
	})
}

func TestBump_Init(t *testing.T) {
	b := NewBump()
	_, err := b.Alloc(WordLayout)
	require.ErrorIs(t, err, ErrNoSpace, "an uninitialized bump allocator has no memory")

	require.ErrorIs(t, b.Init(nil, heap.Region{Start: testHeapStart, Size: 4096}), ErrBadRegion)

	mem, region := newTestHeap(t, 4096)
	require.NoError(t, b.Init(mem, region))
	require.ErrorIs(t, b.Init(mem, region), ErrAlreadyInitialized)
}
