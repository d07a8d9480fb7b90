package heap

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kheap/internal/buf"
)

// ErrFault indicates an access to memory that is not mapped, not writable, or not
// word-aligned. Memory implementations panic with an error wrapping ErrFault; there
// is no way to continue after touching memory the heap does not own.
var ErrFault = errors.New("heap: memory fault")

// Memory is word-addressable storage backing a heap region.
type Memory interface {
	// Load64 reads the little-endian word at addr.
	Load64(addr uintptr) uint64

	// Store64 writes v as a little-endian word at addr.
	Store64(addr uintptr, v uint64)
}

// Fault builds the panic value used for an invalid access.
func Fault(op string, addr uintptr, reason string) error {
	return fmt.Errorf("%w: %s at %#x: %s", ErrFault, op, addr, reason)
}

// Flat is Memory backed by one contiguous byte slice mapped at a virtual base.
type Flat struct {
	region Region
	data   []byte
}

// NewFlat allocates size bytes of zeroed memory that answers to addresses
// [start, start+size).
func NewFlat(start, size uintptr) *Flat {
	return &Flat{
		region: Region{Start: start, Size: size},
		data:   make([]byte, size),
	}
}

// Region returns the address range the memory answers to.
func (f *Flat) Region() Region {
	return f.region
}

func (f *Flat) word(op string, addr uintptr) []byte {
	if !buf.IsAligned(addr, buf.WordSize) {
		panic(Fault(op, addr, "unaligned word"))
	}
	if !f.region.Contains(addr, buf.WordSize) {
		panic(Fault(op, addr, "outside "+f.region.String()))
	}
	off := int(addr - f.region.Start)
	return f.data[off : off+buf.WordSize]
}

// Load64 implements Memory.
func (f *Flat) Load64(addr uintptr) uint64 {
	return buf.U64LE(f.word("load", addr))
}

// Store64 implements Memory.
func (f *Flat) Store64(addr uintptr, v uint64) {
	buf.PutU64LE(f.word("store", addr), v)
}

// Compile-time interface check
var _ Memory = (*Flat)(nil)
