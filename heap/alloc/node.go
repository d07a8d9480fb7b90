package alloc

import (
	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/internal/buf"
)

// This file is the only place that reinterprets heap words as free-list
// structure. Everything outside it handles free memory as freeRegion values.
//
// List node (linked-list allocator and the fixed-size-block fallback):
//
//	+0  size  total bytes of the free region, node included
//	+8  next  address of the next node, 0 at the end of the list
//
// Block node (fixed-size-block class lists):
//
//	+0  next  address of the next free block of the same class, 0 at the end

const (
	listNodeSize  = 2 * buf.WordSize
	listNodeAlign = buf.WordSize

	blockNodeSize  = buf.WordSize
	blockNodeAlign = buf.WordSize

	// nilAddr terminates a list. Address 0 is never inside a heap region.
	nilAddr uintptr = 0
)

// freeRegion is a free block as seen from outside the node store. Popping a
// region out of a list hands it to the caller; writing it back gives it up.
type freeRegion struct {
	addr uintptr
	size uintptr
	next uintptr
}

func (r freeRegion) end() uintptr {
	return r.addr + r.size
}

// nodeStore reads and writes nodes in heap memory, checking every node against
// the structural invariants before trusting it.
type nodeStore struct {
	mem    heap.Memory
	region heap.Region
}

// writeListNode places a list node at r.addr describing r.
func (s nodeStore) writeListNode(r freeRegion) {
	if !buf.IsAligned(r.addr, listNodeAlign) {
		invariantf("list node at %#x not %d-byte aligned", r.addr, listNodeAlign)
	}
	if r.size < listNodeSize {
		invariantf("list node at %#x has size %d < %d", r.addr, r.size, listNodeSize)
	}
	if !s.region.Contains(r.addr, r.size) {
		invariantf("list node [%#x, +%d) outside heap %s", r.addr, r.size, s.region)
	}
	s.checkLink(r.next, listNodeAlign, listNodeSize)

	s.mem.Store64(r.addr, uint64(r.size))
	s.mem.Store64(r.addr+buf.WordSize, uint64(r.next))
}

// readListNode loads the list node at addr.
func (s nodeStore) readListNode(addr uintptr) freeRegion {
	s.checkLink(addr, listNodeAlign, listNodeSize)
	r := freeRegion{
		addr: addr,
		size: uintptr(s.mem.Load64(addr)),
		next: uintptr(s.mem.Load64(addr + buf.WordSize)),
	}
	if r.size < listNodeSize || !s.region.Contains(r.addr, r.size) {
		invariantf("list node at %#x records size %d", addr, r.size)
	}
	s.checkLink(r.next, listNodeAlign, listNodeSize)
	return r
}

// setListNext relinks the list node at addr without touching its size.
func (s nodeStore) setListNext(addr, next uintptr) {
	s.checkLink(addr, listNodeAlign, listNodeSize)
	s.checkLink(next, listNodeAlign, listNodeSize)
	s.mem.Store64(addr+buf.WordSize, uint64(next))
}

// writeBlockNode pushes the block at addr in front of next. blockSize is the
// class size; it must be able to host the node.
func (s nodeStore) writeBlockNode(addr, next, blockSize uintptr) {
	if blockSize < blockNodeSize || blockSize < blockNodeAlign {
		invariantf("class size %d cannot hold a block node", blockSize)
	}
	if !buf.IsAligned(addr, blockSize) {
		invariantf("block at %#x not aligned to its class size %d", addr, blockSize)
	}
	if !s.region.Contains(addr, blockSize) {
		invariantf("block [%#x, +%d) outside heap %s", addr, blockSize, s.region)
	}
	s.checkLink(next, blockNodeAlign, blockNodeSize)

	s.mem.Store64(addr, uint64(next))
}

// readBlockNext returns the link stored in the free block at addr.
func (s nodeStore) readBlockNext(addr uintptr) uintptr {
	s.checkLink(addr, blockNodeAlign, blockNodeSize)
	next := uintptr(s.mem.Load64(addr))
	s.checkLink(next, blockNodeAlign, blockNodeSize)
	return next
}

// checkLink validates a link read from or about to be written to the heap.
func (s nodeStore) checkLink(addr, align, footprint uintptr) {
	if addr == nilAddr {
		return
	}
	if !buf.IsAligned(addr, align) || !s.region.Contains(addr, footprint) {
		invariantf("corrupted link %#x (heap %s)", addr, s.region)
	}
}
