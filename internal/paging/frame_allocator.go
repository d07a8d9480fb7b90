package paging

import (
	"fmt"
	"iter"
)

// RegionKind classifies a memory map entry.
type RegionKind int

const (
	// Usable memory is free for the kernel to use.
	Usable RegionKind = iota
	// Reserved memory must not be touched (firmware, MMIO).
	Reserved
	// Bootloader memory holds the loaded kernel image and boot structures.
	Bootloader
)

func (k RegionKind) String() string {
	switch k {
	case Usable:
		return "usable"
	case Reserved:
		return "reserved"
	case Bootloader:
		return "bootloader"
	default:
		return fmt.Sprintf("RegionKind(%d)", int(k))
	}
}

// MemoryRegion is one entry of the boot memory map: physical [Start, End).
type MemoryRegion struct {
	Start uintptr
	End   uintptr
	Kind  RegionKind
}

// MemoryMap describes physical memory as reported at boot.
type MemoryMap []MemoryRegion

// UsableFrames yields every whole frame inside the usable regions, in map order.
func (m MemoryMap) UsableFrames() iter.Seq[Frame] {
	return func(yield func(Frame) bool) {
		for _, r := range m {
			if r.Kind != Usable {
				continue
			}
			start := (r.Start + PageSize - 1) &^ (PageSize - 1)
			for addr := start; addr+PageSize <= r.End; addr += PageSize {
				if !yield(Frame{Start: addr}) {
					return
				}
			}
		}
	}
}

// UsableBytes returns the total size of whole usable frames.
func (m MemoryMap) UsableBytes() uintptr {
	var n uintptr
	for range m.UsableFrames() {
		n += PageSize
	}
	return n
}

// BootInfoFrameAllocator returns the usable frames of a memory map one after
// another. Frames are never given back.
type BootInfoFrameAllocator struct {
	memoryMap MemoryMap
	next      int
}

// NewBootInfoFrameAllocator creates a frame allocator over m. The caller must
// guarantee that every usable region in m is really unused.
func NewBootInfoFrameAllocator(m MemoryMap) *BootInfoFrameAllocator {
	return &BootInfoFrameAllocator{memoryMap: m}
}

// AllocateFrame implements FrameAllocator.
func (a *BootInfoFrameAllocator) AllocateFrame() (Frame, bool) {
	i := 0
	for f := range a.memoryMap.UsableFrames() {
		if i == a.next {
			a.next++
			return f, true
		}
		i++
	}
	return Frame{}, false
}

// Allocated returns how many frames have been handed out.
func (a *BootInfoFrameAllocator) Allocated() int {
	return a.next
}
