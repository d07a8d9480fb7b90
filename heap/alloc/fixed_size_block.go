package alloc

import (
	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/internal/logger"
)

// FixedSizeBlock is the production allocator: segregated free lists over the
// power-of-two classes in size_classes.go, backed by a LinkedList fallback.
//
//   - Small requests are rounded up to a class. A non-empty class list is popped
//     in O(1) without touching the fallback. An empty one is refilled with a
//     single block of exactly the class size, carved from the fallback.
//   - Requests larger than 2048 bytes, or aligned beyond that, go straight to the
//     fallback with their original layout.
//   - Freed small blocks are pushed onto their class list; freed large blocks go
//     back to the fallback.
//
// Memory that has become a class block stays one for good, even if the class
// falls idle. Only fallback exhaustion can fail an allocation.
type FixedSizeBlock struct {
	// heads[i] is the first free block of class i, nilAddr when empty.
	heads [numClasses]uintptr

	fallback *LinkedList
	nodes    nodeStore

	ready bool
	stats Stats
}

// NewFixedSizeBlock returns an uninitialized fixed-size-block allocator.
func NewFixedSizeBlock() *FixedSizeBlock {
	return &FixedSizeBlock{fallback: NewLinkedList()}
}

// Init implements Allocator. The whole region is handed to the fallback; class
// lists start empty.
func (fsb *FixedSizeBlock) Init(mem heap.Memory, region heap.Region) error {
	if fsb.ready {
		return ErrAlreadyInitialized
	}
	if err := fsb.fallback.Init(mem, region); err != nil {
		return err
	}
	fsb.nodes = nodeStore{mem: mem, region: region}
	fsb.ready = true
	return nil
}

// Alloc implements Allocator.
func (fsb *FixedSizeBlock) Alloc(l Layout) (uintptr, error) {
	fsb.stats.AllocCalls++

	idx, ok := classIndex(l)
	if !ok {
		return fsb.fallbackAlloc(l, l.Size)
	}

	if head := fsb.heads[idx]; head != nilAddr {
		fsb.heads[idx] = fsb.nodes.readBlockNext(head)
		fsb.stats.recordAlloc(l.Size)
		return head, nil
	}

	// No block of this class yet: carve exactly one from the fallback. The class
	// size is a power of two, so it is also the block's alignment.
	size := blockSizes[idx]
	fsb.stats.ClassRefills++
	if logAlloc {
		logger.Debug("fixed-size-block: class refill", "class", size, "layout", l.String())
	}
	return fsb.fallbackAlloc(Layout{Size: size, Align: size}, l.Size)
}

// fallbackAlloc forwards fl to the fallback and accounts the result against
// the caller's requested size.
func (fsb *FixedSizeBlock) fallbackAlloc(fl Layout, requested uintptr) (uintptr, error) {
	fsb.stats.FallbackAllocs++
	addr, err := fsb.fallback.Alloc(fl)
	if err != nil {
		fsb.stats.AllocFailures++
		return 0, err
	}
	fsb.stats.recordAlloc(requested)
	return addr, nil
}

// Dealloc implements Allocator.
func (fsb *FixedSizeBlock) Dealloc(addr uintptr, l Layout) {
	if idx, ok := classIndex(l); ok {
		fsb.nodes.writeBlockNode(addr, fsb.heads[idx], blockSizes[idx])
		fsb.heads[idx] = addr
	} else {
		fsb.stats.FallbackDeallocs++
		fsb.fallback.Dealloc(addr, l)
	}
	fsb.stats.recordDealloc(l.Size)
}

// ClassLengths returns the number of free blocks on each class list, in
// BlockSizes order.
func (fsb *FixedSizeBlock) ClassLengths() []int {
	out := make([]int, numClasses)
	for i, head := range fsb.heads {
		for cur := head; cur != nilAddr; cur = fsb.nodes.readBlockNext(cur) {
			out[i]++
		}
	}
	return out
}

// FreeRegions implements FreeLister. Only the fallback's free list is reported;
// blocks parked on class lists are counted by ClassLengths.
func (fsb *FixedSizeBlock) FreeRegions() []heap.Region {
	return fsb.fallback.FreeRegions()
}

// Fallback exposes the fallback allocator for inspection.
func (fsb *FixedSizeBlock) Fallback() *LinkedList {
	return fsb.fallback
}

// Stats implements Allocator.
func (fsb *FixedSizeBlock) Stats() Stats {
	return fsb.stats
}

// Compile-time interface check
var (
	_ Allocator  = (*FixedSizeBlock)(nil)
	_ FreeLister = (*FixedSizeBlock)(nil)
)
