package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kheap/heap"
)

const (
	// testHeapStart matches the kernel's heap start address.
	testHeapStart uintptr = 0x4444_4444_0000

	// testHeapSize matches the kernel's 100 KiB heap.
	testHeapSize uintptr = 100 * 1024
)

// newTestHeap returns zeroed memory and the region it answers to.
func newTestHeap(t testing.TB, size uintptr) (*heap.Flat, heap.Region) {
	t.Helper()
	mem := heap.NewFlat(testHeapStart, size)
	return mem, mem.Region()
}

// newInitialized builds an allocator of strategy s over a fresh heap of size bytes.
func newInitialized(t testing.TB, s Strategy, size uintptr) (Allocator, *heap.Flat) {
	t.Helper()
	a, err := New(s)
	require.NoError(t, err)
	mem, region := newTestHeap(t, size)
	require.NoError(t, a.Init(mem, region))
	return a, mem
}

// newTestHandle builds an initialized Handle over a fresh heap of size bytes.
func newTestHandle(t testing.TB, s Strategy, size uintptr) (*Handle, *heap.Flat) {
	t.Helper()
	h, err := NewHandle(s)
	require.NoError(t, err)
	mem, region := newTestHeap(t, size)
	require.NoError(t, h.Init(mem, region))
	return h, mem
}

// mustLayout builds a layout, failing the test if it is invalid.
func mustLayout(t testing.TB, size, align uintptr) Layout {
	t.Helper()
	l, err := NewLayout(size, align)
	require.NoError(t, err)
	return l
}

// requireInvariantPanic runs fn and requires it to panic with ErrInvariant.
func requireInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected an invariant panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.ErrorIs(t, err, ErrInvariant)
	}()
	fn()
}

// forEachStrategy runs fn as a subtest once per strategy.
func forEachStrategy(t *testing.T, fn func(t *testing.T, s Strategy)) {
	t.Helper()
	for _, s := range Strategies() {
		t.Run(s.String(), func(t *testing.T) {
			fn(t, s)
		})
	}
}
