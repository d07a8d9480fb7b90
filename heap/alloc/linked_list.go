package alloc

import (
	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/internal/buf"
	"github.com/joshuapare/kheap/internal/logger"
)

// LinkedList is an explicit free-list allocator.
//
// Every free region carries a list node in its first 16 bytes (see node.go).
// The list starts as one node spanning the whole heap.
//
//   - Alloc: first fit. The first region that can hold the request is unlinked;
//     any leftover tail goes back on the list as a new node.
//   - Dealloc: the block becomes a new node at the head of the list, so the most
//     recently freed region is the first one tried.
//
// Adjacent free regions are never merged, on either path. Long-running mixed
// workloads therefore fragment; that is accepted for the sake of simplicity.
type LinkedList struct {
	nodes nodeStore

	// head is the address of the first free node, nilAddr when the list is empty.
	head uintptr

	ready bool
	stats Stats
}

// NewLinkedList returns an uninitialized linked-list allocator.
func NewLinkedList() *LinkedList {
	return &LinkedList{}
}

// Init implements Allocator. region.Start must be 8-byte aligned and the region
// must be large enough to hold one node.
func (ll *LinkedList) Init(mem heap.Memory, region heap.Region) error {
	if ll.ready {
		return ErrAlreadyInitialized
	}
	if mem == nil || !region.Valid() ||
		!buf.IsAligned(region.Start, listNodeAlign) || region.Size < listNodeSize {
		return ErrBadRegion
	}

	ll.nodes = nodeStore{mem: mem, region: region}
	ll.addFreeRegion(region.Start, region.Size)
	ll.ready = true
	return nil
}

// listSizeAlign widens a layout so that the block, once freed, can host a
// list node in place. Alloc and Dealloc must both use it or the free list
// would record blocks of the wrong size.
func listSizeAlign(l Layout) (size, align uintptr) {
	align = max(l.Align, listNodeAlign)
	size, _ = buf.AlignUp(l.Size, align) // layouts are validated before they get here
	size = max(size, listNodeSize)
	return size, align
}

// Alloc implements Allocator.
func (ll *LinkedList) Alloc(l Layout) (uintptr, error) {
	ll.stats.AllocCalls++

	size, align := listSizeAlign(l)
	region, start, ok := ll.findRegion(size, align)
	if !ok {
		ll.stats.AllocFailures++
		if logAlloc {
			logger.Debug("linked-list: no fitting region", "layout", l.String(),
				"adjusted_size", size, "adjusted_align", align, "free_bytes", ll.FreeBytes())
		}
		return 0, ErrNoSpace
	}

	end := start + size
	if excess := region.end() - end; excess > 0 {
		ll.addFreeRegion(end, excess)
	}

	ll.stats.recordAlloc(l.Size)
	return start, nil
}

// Dealloc implements Allocator.
func (ll *LinkedList) Dealloc(addr uintptr, l Layout) {
	size, _ := listSizeAlign(l)
	ll.addFreeRegion(addr, size)
	ll.stats.recordDealloc(l.Size)
}

// addFreeRegion pushes [addr, addr+size) onto the head of the list.
func (ll *LinkedList) addFreeRegion(addr, size uintptr) {
	ll.nodes.writeListNode(freeRegion{addr: addr, size: size, next: ll.head})
	ll.head = addr
}

// findRegion walks the list for the first region that fits size at align and
// unlinks it. Returns the region and the aligned start address within it.
func (ll *LinkedList) findRegion(size, align uintptr) (freeRegion, uintptr, bool) {
	prev := nilAddr
	for cur := ll.head; cur != nilAddr; {
		region := ll.nodes.readListNode(cur)
		if start, ok := allocFromRegion(region, size, align); ok {
			if prev == nilAddr {
				ll.head = region.next
			} else {
				ll.nodes.setListNext(prev, region.next)
			}
			return region, start, true
		}
		prev, cur = cur, region.next
	}
	return freeRegion{}, 0, false
}

// allocFromRegion reports where an allocation of size at align would start in
// region, or false when it does not fit. A fit that would leave a tail too
// small to hold a node is refused: such a tail could never be tracked.
func allocFromRegion(region freeRegion, size, align uintptr) (uintptr, bool) {
	start, ok := buf.AlignUp(region.addr, align)
	if !ok {
		return 0, false
	}
	end, ok := buf.CheckedAdd(start, size)
	if !ok || end > region.end() {
		return 0, false
	}
	excess := region.end() - end
	if excess > 0 && excess < listNodeSize {
		return 0, false
	}
	return start, true
}

// FreeRegions implements FreeLister, in list order.
func (ll *LinkedList) FreeRegions() []heap.Region {
	var out []heap.Region
	for cur := ll.head; cur != nilAddr; {
		region := ll.nodes.readListNode(cur)
		out = append(out, heap.Region{Start: region.addr, Size: region.size})
		cur = region.next
	}
	return out
}

// FreeBytes returns the total size of all regions on the free list. Alignment
// padding skipped in front of an allocation is not on the list and not counted.
func (ll *LinkedList) FreeBytes() uintptr {
	var total uintptr
	for cur := ll.head; cur != nilAddr; {
		region := ll.nodes.readListNode(cur)
		total += region.size
		cur = region.next
	}
	return total
}

// Stats implements Allocator.
func (ll *LinkedList) Stats() Stats {
	return ll.stats
}

// Compile-time interface check
var (
	_ Allocator  = (*LinkedList)(nil)
	_ FreeLister = (*LinkedList)(nil)
)
