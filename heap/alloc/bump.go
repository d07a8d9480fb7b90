package alloc

import (
	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/internal/buf"
	"github.com/joshuapare/kheap/internal/logger"
)

// Bump is the simplest strategy: a pointer that only moves forward.
//
// Key characteristics:
//   - O(1) allocation: align the pointer, advance it, count the allocation
//   - O(1) deallocation: only the live count changes
//   - Memory is reclaimed only when every allocation has been freed, at which
//     point the pointer jumps back to the heap start
//
// Mixed lifetimes fragment it badly: one long-lived allocation pins everything
// allocated after it. It is kept as a baseline, not the production path.
type Bump struct {
	heapStart uintptr
	heapEnd   uintptr

	// next is the first address not yet handed out.
	next uintptr

	// allocations counts live allocations; next resets when it returns to 0.
	allocations int

	ready bool
	stats Stats
}

// NewBump returns an uninitialized bump allocator.
func NewBump() *Bump {
	return &Bump{}
}

// Init implements Allocator. The bump allocator never writes into the heap, so
// mem is only checked for presence.
func (b *Bump) Init(mem heap.Memory, region heap.Region) error {
	if b.ready {
		return ErrAlreadyInitialized
	}
	if mem == nil || !region.Valid() {
		return ErrBadRegion
	}
	b.heapStart = region.Start
	b.heapEnd = region.End()
	b.next = region.Start
	b.ready = true
	return nil
}

// Alloc implements Allocator.
func (b *Bump) Alloc(l Layout) (uintptr, error) {
	b.stats.AllocCalls++

	start, ok := buf.AlignUp(b.next, l.Align)
	var end uintptr
	if ok {
		end, ok = buf.CheckedAdd(start, l.Size)
	}
	if !ok || end > b.heapEnd || !b.ready {
		b.stats.AllocFailures++
		if logAlloc {
			logger.Debug("bump: exhausted", "layout", l.String(),
				"next", b.next, "end", b.heapEnd, "live", b.allocations)
		}
		return 0, ErrNoSpace
	}

	b.next = end
	b.allocations++
	b.stats.recordAlloc(l.Size)
	return start, nil
}

// Dealloc implements Allocator. The address is ignored: individual blocks are
// never reused, only the whole heap once it is empty.
func (b *Bump) Dealloc(_ uintptr, l Layout) {
	if b.allocations == 0 {
		invariantf("bump: dealloc with no live allocations")
		return
	}
	b.allocations--
	if b.allocations == 0 {
		b.next = b.heapStart
	}
	b.stats.recordDealloc(l.Size)
}

// FreeRegions implements FreeLister: the untouched tail of the heap.
func (b *Bump) FreeRegions() []heap.Region {
	if !b.ready || b.next >= b.heapEnd {
		return nil
	}
	return []heap.Region{{Start: b.next, Size: b.heapEnd - b.next}}
}

// Stats implements Allocator.
func (b *Bump) Stats() Stats {
	return b.stats
}

// Compile-time interface check
var (
	_ Allocator  = (*Bump)(nil)
	_ FreeLister = (*Bump)(nil)
)
