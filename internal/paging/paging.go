// Package paging simulates the virtual-memory collaborators the kernel heap
// depends on: a boot memory map, a physical frame allocator over it, and a
// page table that maps 4 KiB virtual pages onto frames of a physmem.Arena.
//
// It models only what heap initialization observes: frames can run out, a
// parent entry can already be a huge page, and a page can already be mapped.
// There is no TLB, no unmapping, and no permission model beyond Writable.
package paging

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/joshuapare/kheap/internal/buf"
)

const (
	// PageSize is the size of a page and of a frame.
	PageSize uintptr = 4096

	// HugePageSize is the span of one level-1 table, and of a huge page.
	HugePageSize uintptr = 2 << 20
)

var (
	// ErrFrameAllocationFailed is returned when a frame was needed, either for
	// the mapping itself or for a page table, and none was left.
	ErrFrameAllocationFailed = errors.New("paging: frame allocation failed")

	// ErrParentEntryHugePage is returned when the page lies inside an existing
	// huge-page mapping.
	ErrParentEntryHugePage = errors.New("paging: parent entry is a huge page")

	// ErrPageAlreadyMapped is returned when the page already has a mapping.
	ErrPageAlreadyMapped = errors.New("paging: page already mapped")

	// ErrFrameOutOfRange is returned for a frame beyond physical memory.
	ErrFrameOutOfRange = errors.New("paging: frame outside physical memory")

	// ErrUnaligned is returned for a page or frame address that is not aligned
	// to its size.
	ErrUnaligned = errors.New("paging: unaligned address")
)

// Page is a 4 KiB-aligned virtual page.
type Page struct {
	Start uintptr
}

// PageContaining returns the page that addr falls in.
func PageContaining(addr uintptr) Page {
	return Page{Start: buf.AlignDown(addr, PageSize)}
}

// Pages yields every page from the one containing first through the one
// containing last, inclusive.
func Pages(first, last uintptr) iter.Seq[Page] {
	return func(yield func(Page) bool) {
		if last < first {
			return
		}
		end := PageContaining(last).Start
		for p := PageContaining(first).Start; ; p += PageSize {
			if !yield(Page{Start: p}) || p == end {
				return
			}
		}
	}
}

func (p Page) String() string {
	return fmt.Sprintf("page %#x", p.Start)
}

// Frame is a 4 KiB-aligned physical frame.
type Frame struct {
	Start uintptr
}

func (f Frame) String() string {
	return fmt.Sprintf("frame %#x", f.Start)
}

// Flags are page table entry flags.
type Flags uint8

const (
	Present Flags = 1 << iota
	Writable
	HugePage
)

func (f Flags) String() string {
	if f == 0 {
		return "-"
	}
	var parts []string
	if f&Present != 0 {
		parts = append(parts, "PRESENT")
	}
	if f&Writable != 0 {
		parts = append(parts, "WRITABLE")
	}
	if f&HugePage != 0 {
		parts = append(parts, "HUGE")
	}
	return strings.Join(parts, "|")
}

// FrameAllocator hands out unused physical frames.
type FrameAllocator interface {
	// AllocateFrame returns the next free frame, or false when none is left.
	AllocateFrame() (Frame, bool)
}

// Mapper installs page mappings.
type Mapper interface {
	// MapTo maps page to frame with flags. Any page table the mapping needs is
	// allocated from frames.
	MapTo(page Page, frame Frame, flags Flags, frames FrameAllocator) error
}
