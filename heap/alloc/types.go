package alloc

import (
	"fmt"
	"strings"

	"github.com/joshuapare/kheap/heap"
)

// Allocator is the contract shared by every heap strategy.
//
// Implementations:
//   - Bump: monotonic pointer, whole-heap reclaim when the last allocation is freed
//   - LinkedList: first-fit free list with in-place splitting
//   - FixedSizeBlock: power-of-two size classes over a LinkedList fallback
//
// Allocators are not safe for concurrent use. All shared access goes through a
// Handle, which serializes every call behind a spin lock.
type Allocator interface {
	// Init hands the allocator its heap. It must be called exactly once, before
	// any other method, over memory nothing else uses.
	Init(mem heap.Memory, region heap.Region) error

	// Alloc reserves memory for l and returns its start address.
	// Returns ErrNoSpace when the request cannot be satisfied.
	Alloc(l Layout) (uintptr, error)

	// Dealloc returns memory obtained from Alloc with the same layout.
	Dealloc(addr uintptr, l Layout)

	// Stats returns counters describing the traffic seen so far.
	Stats() Stats
}

// FreeLister is implemented by allocators that can enumerate their free memory.
type FreeLister interface {
	FreeRegions() []heap.Region
}

// Stats holds allocator counters. Byte counts use the requested layout sizes,
// not the padded sizes the allocator actually reserved.
type Stats struct {
	AllocCalls     int   // Total Alloc() calls
	AllocFailures  int   // Alloc() calls that returned ErrNoSpace
	DeallocCalls   int   // Total Dealloc() calls
	Live           int   // Allocations not yet returned
	BytesInUse     int64 // Requested bytes currently live
	PeakBytesInUse int64 // High-water mark of BytesInUse

	// Fixed-size-block only
	FallbackAllocs   int // Alloc() calls forwarded to the fallback allocator
	FallbackDeallocs int // Dealloc() calls forwarded to the fallback allocator
	ClassRefills     int // Empty class lists refilled with one block from the fallback
}

func (s *Stats) recordAlloc(size uintptr) {
	s.Live++
	s.BytesInUse += int64(size)
	if s.BytesInUse > s.PeakBytesInUse {
		s.PeakBytesInUse = s.BytesInUse
	}
}

func (s *Stats) recordDealloc(size uintptr) {
	s.DeallocCalls++
	s.Live--
	s.BytesInUse -= int64(size)
}

// Strategy selects one of the allocator implementations.
type Strategy int

const (
	// StrategyFixedSizeBlock is the production default.
	StrategyFixedSizeBlock Strategy = iota
	StrategyLinkedList
	StrategyBump
)

var strategyNames = map[Strategy]string{
	StrategyFixedSizeBlock: "fixed-size-block",
	StrategyLinkedList:     "linked-list",
	StrategyBump:           "bump",
}

// Strategies lists every strategy, production default first.
func Strategies() []Strategy {
	return []Strategy{StrategyFixedSizeBlock, StrategyLinkedList, StrategyBump}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy accepts the names printed by Strategy.String.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// New returns an uninitialized allocator for s.
func New(s Strategy) (Allocator, error) {
	switch s {
	case StrategyFixedSizeBlock:
		return NewFixedSizeBlock(), nil
	case StrategyLinkedList:
		return NewLinkedList(), nil
	case StrategyBump:
		return NewBump(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, s)
	}
}
