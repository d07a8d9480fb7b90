// Package physmem provides the byte arena that stands in for physical RAM.
//
// Frame addresses handed out by the paging layer are offsets into the arena.
// Where the platform supports it the arena is an anonymous private mapping, so
// untouched frames cost nothing until first written.
package physmem

import (
	"errors"
	"fmt"
)

// PageSize is the frame granularity. Arena sizes must be a multiple of it.
const PageSize = 4096

var (
	// ErrBadSize is returned for an arena size that is zero or not page-sized.
	ErrBadSize = errors.New("physmem: size must be a non-zero multiple of the page size")

	// ErrClosed is returned when using an arena after Close.
	ErrClosed = errors.New("physmem: arena closed")
)

// Arena is a contiguous block of simulated physical memory.
type Arena struct {
	data    []byte
	release func([]byte) error
}

// New allocates a zeroed arena of size bytes.
func New(size uintptr) (*Arena, error) {
	if size == 0 || size%PageSize != 0 || size > uintptr(^uint(0)>>1) {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	data, release, err := allocate(int(size))
	if err != nil {
		return nil, fmt.Errorf("physmem: allocate %d bytes: %w", size, err)
	}
	return &Arena{data: data, release: release}, nil
}

// Size returns the arena size in bytes, 0 after Close.
func (a *Arena) Size() uintptr {
	return uintptr(len(a.data))
}

// Bytes returns the backing memory. The slice is invalid after Close.
func (a *Arena) Bytes() []byte {
	return a.data
}

// Frame returns the PageSize bytes starting at physical address phys.
func (a *Arena) Frame(phys uintptr) ([]byte, error) {
	if a.data == nil {
		return nil, ErrClosed
	}
	if phys%PageSize != 0 || phys >= uintptr(len(a.data)) {
		return nil, fmt.Errorf("physmem: frame %#x outside arena of %d bytes", phys, len(a.data))
	}
	return a.data[phys : phys+PageSize : phys+PageSize], nil
}

// Close releases the arena. Calling it twice is a no-op.
func (a *Arena) Close() error {
	if a.data == nil {
		return nil
	}
	data := a.data
	a.data = nil
	return a.release(data)
}
