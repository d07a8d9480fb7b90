// Package kernel wires the heap into boot: it maps the heap's virtual range,
// initializes the selected allocator over it, and exposes the result as the
// single allocation interface the rest of the kernel uses.
package kernel

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/logger"
	"github.com/joshuapare/kheap/internal/paging"
)

// Heap geometry.
const (
	// HeapStart is the virtual address the heap is mapped at. It is far from
	// anything else in the address space so that stray pointers into it stand out.
	HeapStart uintptr = 0x4444_4444_0000

	// HeapSize is the heap size in bytes.
	HeapSize uintptr = 100 * 1024
)

// AddressSpace is what heap initialization needs from the virtual memory
// subsystem: a way to map pages and a way to reach the mapped words.
type AddressSpace interface {
	paging.Mapper
	heap.Memory
}

// AllocError is the panic value of MustAlloc when an allocation cannot be
// satisfied.
type AllocError struct {
	Layout alloc.Layout
	Err    error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("memory allocation of %s failed: %v", e.Layout, e.Err)
}

func (e *AllocError) Unwrap() error {
	return e.Err
}

// AllocErrorHandler is called by MustAlloc when an allocation fails. It must
// not return; if it does, MustAlloc panics on its behalf.
type AllocErrorHandler func(l alloc.Layout, err error)

// DefaultAllocErrorHandler panics with an *AllocError.
func DefaultAllocErrorHandler(l alloc.Layout, err error) {
	panic(&AllocError{Layout: l, Err: err})
}

// Heap is the kernel's allocation interface. It is one allocator behind a spin
// lock, initialized exactly once by InitHeap.
type Heap struct {
	handle *alloc.Handle

	// onAllocError is swapped atomically; MustAlloc may read it from any
	// goroutine while another replaces it.
	onAllocError atomic.Pointer[AllocErrorHandler]
}

// NewHeap returns an uninitialized heap using strategy s.
func NewHeap(s alloc.Strategy) (*Heap, error) {
	handle, err := alloc.NewHandle(s)
	if err != nil {
		return nil, err
	}
	h := &Heap{handle: handle}
	h.SetAllocErrorHandler(nil)
	return h, nil
}

// SetAllocErrorHandler replaces the handler MustAlloc calls on failure. A nil
// handler restores DefaultAllocErrorHandler. It is safe to call while the heap
// is in use.
func (h *Heap) SetAllocErrorHandler(fn AllocErrorHandler) {
	if fn == nil {
		fn = DefaultAllocErrorHandler
	}
	h.onAllocError.Store(&fn)
}

// Init initializes the allocator over region of mem. InitHeap calls it once
// the region is mapped.
func (h *Heap) Init(mem heap.Memory, region heap.Region) error {
	return h.handle.Init(mem, region)
}

// Alloc allocates memory for l. It returns alloc.ErrNoSpace when the heap
// cannot satisfy the request.
func (h *Heap) Alloc(l alloc.Layout) (uintptr, error) {
	return h.handle.Alloc(l)
}

// MustAlloc allocates memory for l and treats failure as fatal.
func (h *Heap) MustAlloc(l alloc.Layout) uintptr {
	addr, err := h.handle.Alloc(l)
	if err == nil {
		return addr
	}
	if errors.Is(err, alloc.ErrNoSpace) {
		logger.Error("heap exhausted", "layout", l.String(), "strategy", h.handle.Strategy().String())
	} else {
		logger.Error("allocation failed", "layout", l.String(), "error", err)
	}
	(*h.onAllocError.Load())(l, err)
	logger.Warn("alloc error handler returned", "layout", l.String())
	panic(&AllocError{Layout: l, Err: err})
}

// Dealloc frees memory previously returned for l.
func (h *Heap) Dealloc(addr uintptr, l alloc.Layout) {
	h.handle.Dealloc(addr, l)
}

// Memory returns the memory the heap lives in, nil before Init.
func (h *Heap) Memory() heap.Memory {
	return h.handle.Memory()
}

// Region returns the heap region, zero before Init.
func (h *Heap) Region() heap.Region {
	return h.handle.Region()
}

// Strategy returns the allocator strategy.
func (h *Heap) Strategy() alloc.Strategy {
	return h.handle.Strategy()
}

// Ready reports whether the heap has been initialized.
func (h *Heap) Ready() bool {
	return h.handle.Ready()
}

// Stats returns a snapshot of the allocator counters.
func (h *Heap) Stats() alloc.Stats {
	return h.handle.Stats()
}

// FreeRegions returns the allocator's free-list regions.
func (h *Heap) FreeRegions() []heap.Region {
	return h.handle.FreeRegions()
}

// Inspect runs fn with the allocator under the heap lock.
func (h *Heap) Inspect(fn func(alloc.Allocator)) {
	h.handle.Inspect(fn)
}
