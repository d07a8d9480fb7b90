// Package workload exercises a heap the way kernel code does: single-word boxes,
// growable vectors, and named scenarios built from them.
package workload

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/buf"
)

// ErrFreed is returned when using a Box or Vec after Free.
var ErrFreed = errors.New("workload: use after free")

// Allocator is the allocation interface workloads run against. Both
// *kernel.Heap and *alloc.Handle satisfy it.
type Allocator interface {
	Alloc(l alloc.Layout) (uintptr, error)
	Dealloc(addr uintptr, l alloc.Layout)
	Memory() heap.Memory
}

// Box is one heap-allocated word.
type Box struct {
	a    Allocator
	mem  heap.Memory
	addr uintptr
}

// NewBox allocates a word and stores v in it.
func NewBox(a Allocator, v uint64) (*Box, error) {
	addr, err := a.Alloc(alloc.WordLayout)
	if err != nil {
		return nil, fmt.Errorf("box: %w", err)
	}
	b := &Box{a: a, mem: a.Memory(), addr: addr}
	b.mem.Store64(addr, v)
	return b, nil
}

// Addr returns the heap address of the word, 0 after Free.
func (b *Box) Addr() uintptr {
	return b.addr
}

// Get returns the boxed value.
func (b *Box) Get() (uint64, error) {
	if b.addr == 0 {
		return 0, ErrFreed
	}
	return b.mem.Load64(b.addr), nil
}

// Set replaces the boxed value.
func (b *Box) Set(v uint64) error {
	if b.addr == 0 {
		return ErrFreed
	}
	b.mem.Store64(b.addr, v)
	return nil
}

// Free returns the word to the heap. Freeing twice is a no-op.
func (b *Box) Free() {
	if b.addr == 0 {
		return
	}
	b.a.Dealloc(b.addr, alloc.WordLayout)
	b.addr = 0
}

// Vec is a growable array of words on the heap. Growing allocates a new
// buffer, copies, and frees the old one.
type Vec struct {
	a   Allocator
	mem heap.Memory

	addr uintptr
	len  uintptr
	cap  uintptr
}

// minVecCap is the capacity of the first buffer.
const minVecCap = 4

// NewVec returns an empty vector. Nothing is allocated until the first Push.
func NewVec(a Allocator) *Vec {
	return &Vec{a: a, mem: a.Memory()}
}

// Len returns the number of elements.
func (v *Vec) Len() int {
	return int(v.len)
}

// Cap returns the number of elements the current buffer holds.
func (v *Vec) Cap() int {
	return int(v.cap)
}

// Push appends x, growing the buffer when full.
func (v *Vec) Push(x uint64) error {
	if v.len == v.cap {
		if err := v.grow(); err != nil {
			return err
		}
	}
	v.mem.Store64(v.addr+v.len*buf.WordSize, x)
	v.len++
	return nil
}

func (v *Vec) grow() error {
	newCap := max(minVecCap, 2*v.cap)
	l, err := alloc.ArrayLayout(newCap)
	if err != nil {
		return fmt.Errorf("vec: grow to %d: %w", newCap, err)
	}
	addr, err := v.a.Alloc(l)
	if err != nil {
		return fmt.Errorf("vec: grow to %d: %w", newCap, err)
	}
	for i := range v.len {
		v.mem.Store64(addr+i*buf.WordSize, v.mem.Load64(v.addr+i*buf.WordSize))
	}
	v.release()
	v.addr, v.cap = addr, newCap
	return nil
}

// Get returns element i.
func (v *Vec) Get(i int) (uint64, error) {
	if i < 0 || uintptr(i) >= v.len {
		return 0, fmt.Errorf("vec: index %d out of range [0, %d)", i, v.len)
	}
	return v.mem.Load64(v.addr + uintptr(i)*buf.WordSize), nil
}

// Sum adds all elements.
func (v *Vec) Sum() uint64 {
	var total uint64
	for i := range v.len {
		total += v.mem.Load64(v.addr + i*buf.WordSize)
	}
	return total
}

// Free releases the buffer and empties the vector. It can be reused afterwards.
func (v *Vec) Free() {
	v.release()
	v.addr, v.len, v.cap = 0, 0, 0
}

func (v *Vec) release() {
	if v.cap == 0 {
		return
	}
	l, _ := alloc.ArrayLayout(v.cap) // validated when the buffer was allocated
	v.a.Dealloc(v.addr, l)
}
