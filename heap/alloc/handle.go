package alloc

import (
	"fmt"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/heap/spin"
)

// handleState is everything a Handle guards.
type handleState struct {
	a      Allocator
	mem    heap.Memory
	region heap.Region
	ready  bool
}

// Handle is an allocator behind the spin lock. It is the only way shared code
// reaches allocator state: at most one caller is inside the allocator at any
// instant, and nobody ever observes a half-updated free list.
//
// The lock is not reentrant. Allocating from an interrupt handler that may have
// interrupted an allocation on the same CPU deadlocks.
type Handle struct {
	strategy Strategy
	state    *spin.Locked[*handleState]
}

// NewHandle wraps a fresh allocator of the given strategy.
func NewHandle(s Strategy) (*Handle, error) {
	a, err := New(s)
	if err != nil {
		return nil, err
	}
	return &Handle{
		strategy: s,
		state:    spin.NewLocked(&handleState{a: a}),
	}, nil
}

// Strategy returns the strategy the handle was built with.
func (h *Handle) Strategy() Strategy {
	return h.strategy
}

// Init initializes the allocator over region. It succeeds at most once.
func (h *Handle) Init(mem heap.Memory, region heap.Region) error {
	return spin.Do(h.state, func(st *handleState) error {
		if st.ready {
			return ErrAlreadyInitialized
		}
		if err := st.a.Init(mem, region); err != nil {
			return fmt.Errorf("init %s over %s: %w", h.strategy, region, err)
		}
		st.mem = mem
		st.region = region
		st.ready = true
		return nil
	})
}

type allocResult struct {
	addr uintptr
	err  error
}

// Alloc validates l and allocates it under the lock.
func (h *Handle) Alloc(l Layout) (uintptr, error) {
	if !l.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrBadLayout, l)
	}
	res := spin.Do(h.state, func(st *handleState) allocResult {
		if !st.ready {
			return allocResult{err: ErrNotInitialized}
		}
		addr, err := st.a.Alloc(l)
		return allocResult{addr: addr, err: err}
	})
	return res.addr, res.err
}

// Dealloc returns addr under the lock. l must be the layout addr was
// allocated with.
func (h *Handle) Dealloc(addr uintptr, l Layout) {
	h.state.With(func(st *handleState) {
		if !st.ready {
			panic(fmt.Errorf("dealloc %#x: %w", addr, ErrNotInitialized))
		}
		st.a.Dealloc(addr, l)
	})
}

// Ready reports whether Init has succeeded.
func (h *Handle) Ready() bool {
	return spin.Do(h.state, func(st *handleState) bool { return st.ready })
}

// Memory returns the memory the heap lives in, nil before Init.
func (h *Handle) Memory() heap.Memory {
	return spin.Do(h.state, func(st *handleState) heap.Memory { return st.mem })
}

// Region returns the heap region, zero before Init.
func (h *Handle) Region() heap.Region {
	return spin.Do(h.state, func(st *handleState) heap.Region { return st.region })
}

// Stats returns a snapshot of the allocator counters.
func (h *Handle) Stats() Stats {
	return spin.Do(h.state, func(st *handleState) Stats { return st.a.Stats() })
}

// FreeRegions returns the allocator's free memory, or nil when the strategy
// cannot enumerate it.
func (h *Handle) FreeRegions() []heap.Region {
	return spin.Do(h.state, func(st *handleState) []heap.Region {
		if fl, ok := st.a.(FreeLister); ok && st.ready {
			return fl.FreeRegions()
		}
		return nil
	})
}

// Inspect runs fn with the allocator while holding the lock. fn must not call
// back into the Handle.
func (h *Handle) Inspect(fn func(Allocator)) {
	h.state.With(func(st *handleState) { fn(st.a) })
}
