// Package alloc provides the kernel heap allocators.
//
// # Overview
//
// Three interchangeable strategies implement the same Allocator contract over a
// single heap.Region:
//
//   - Bump: monotonic pointer, O(1), reclaims only when the heap is empty
//   - LinkedList: first-fit free list with in-place splitting, O(n) in list length
//   - FixedSizeBlock: power-of-two class lists over a LinkedList fallback,
//     O(1) amortized (production default)
//
// # Allocator Interface
//
//   - Init(mem, region): hand the allocator its heap (exactly once)
//   - Alloc(layout): reserve memory, ErrNoSpace when exhausted
//   - Dealloc(addr, layout): return memory; layout must match the Alloc call
//   - Stats(): call and byte counters
//
// Allocators are single-threaded. Shared access goes through Handle, which puts
// the allocator behind a spin.Locked.
//
// # Usage Example
//
//	h, err := alloc.NewHandle(alloc.StrategyFixedSizeBlock)
//	if err != nil {
//	    return err
//	}
//	if err := h.Init(mem, heap.Region{Start: start, Size: size}); err != nil {
//	    return err
//	}
//
//	addr, err := h.Alloc(alloc.WordLayout)
//	if err != nil {
//	    return err
//	}
//	mem.Store64(addr, 42)
//	h.Dealloc(addr, alloc.WordLayout)
//
// # Free-List Nodes
//
// The linked-list allocator (and the fixed-size-block fallback) keeps its free
// list inside the free memory itself. node.go is the only code that reads or
// writes those nodes, and it checks alignment, minimum size and link validity on
// every access. A violation panics with an error wrapping ErrInvariant.
//
// Every block handed out by a free-list allocator is at least 16 bytes and
// 8-byte aligned, so it can become a node again when it is freed.
//
// # Size Classes
//
//	Class 0:    8 bytes
//	Class 1:   16 bytes
//	Class 2:   32 bytes
//	Class 3:   64 bytes
//	Class 4:  128 bytes
//	Class 5:  256 bytes
//	Class 6: 1024 bytes
//	Class 7: 2048 bytes
//	(larger or more strictly aligned requests go to the fallback)
//
// # Limitations
//
// Neither the linked-list allocator nor the fallback merges adjacent free
// regions, and class blocks are never handed back to the fallback.
//
// # Debugging
//
// Set KHEAP_LOG_ALLOC=1 to log exhaustion and class refills through
// internal/logger at debug level.
package alloc
