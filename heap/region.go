package heap

import (
	"fmt"

	"github.com/joshuapare/kheap/internal/buf"
)

// Region is a contiguous virtual address range [Start, Start+Size).
type Region struct {
	Start uintptr
	Size  uintptr
}

// End returns the first address past the region.
func (r Region) End() uintptr {
	return r.Start + r.Size
}

// Contains reports whether [addr, addr+n) lies inside the region.
func (r Region) Contains(addr, n uintptr) bool {
	if addr < r.Start {
		return false
	}
	end, ok := buf.CheckedAdd(addr, n)
	return ok && end <= r.End()
}

// Valid reports whether the region is non-empty and does not wrap the address space.
func (r Region) Valid() bool {
	if r.Size == 0 {
		return false
	}
	_, ok := buf.CheckedAdd(r.Start, r.Size)
	return ok
}

func (r Region) String() string {
	return fmt.Sprintf("[%#x, %#x) %d bytes", r.Start, r.End(), r.Size)
}
