package paging

import (
	"fmt"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/internal/buf"
	"github.com/joshuapare/kheap/internal/physmem"
)

type entry struct {
	frame Frame
	flags Flags
}

// OffsetPageTable maps virtual pages onto frames of a physical arena.
//
// Page tables are kept as a map rather than as frames in the arena, but every
// level-1 table still costs one frame from the frame allocator when it is
// first needed, so that running out of frames behaves as on hardware.
//
// Mapping is not safe for concurrent use. Once mapping is done, concurrent
// Load64/Store64 calls are safe as long as they touch different words.
type OffsetPageTable struct {
	arena *physmem.Arena

	entries map[Page]entry
	// tables holds the frame backing each level-1 table, keyed by the
	// HugePageSize-aligned virtual base it covers.
	tables map[uintptr]Frame
	// huge holds huge-page mappings, keyed like tables.
	huge map[uintptr]entry
}

// NewOffsetPageTable returns an empty page table over arena.
func NewOffsetPageTable(arena *physmem.Arena) *OffsetPageTable {
	return &OffsetPageTable{
		arena:   arena,
		entries: make(map[Page]entry),
		tables:  make(map[uintptr]Frame),
		huge:    make(map[uintptr]entry),
	}
}

func tableBase(addr uintptr) uintptr {
	return buf.AlignDown(addr, HugePageSize)
}

// MapTo implements Mapper. Present is always added to flags.
func (pt *OffsetPageTable) MapTo(page Page, frame Frame, flags Flags, frames FrameAllocator) error {
	if !buf.IsAligned(page.Start, PageSize) || !buf.IsAligned(frame.Start, PageSize) {
		return fmt.Errorf("%w: map %s to %s", ErrUnaligned, page, frame)
	}
	if !pt.frameInArena(frame, PageSize) {
		return fmt.Errorf("%w: %s", ErrFrameOutOfRange, frame)
	}

	base := tableBase(page.Start)
	if _, ok := pt.huge[base]; ok {
		return ErrParentEntryHugePage
	}
	if _, ok := pt.tables[base]; !ok {
		table, ok := frames.AllocateFrame()
		if !ok {
			return ErrFrameAllocationFailed
		}
		pt.tables[base] = table
	}
	if _, ok := pt.entries[page]; ok {
		return ErrPageAlreadyMapped
	}

	pt.entries[page] = entry{frame: frame, flags: (flags | Present) &^ HugePage}
	return nil
}

// MapHuge maps the HugePageSize region at base onto the physical range starting
// at frame. Both must be HugePageSize-aligned.
func (pt *OffsetPageTable) MapHuge(base uintptr, frame Frame, flags Flags) error {
	if !buf.IsAligned(base, HugePageSize) || !buf.IsAligned(frame.Start, HugePageSize) {
		return fmt.Errorf("%w: huge map %#x to %s", ErrUnaligned, base, frame)
	}
	if !pt.frameInArena(frame, HugePageSize) {
		return fmt.Errorf("%w: %s", ErrFrameOutOfRange, frame)
	}
	_, isHuge := pt.huge[base]
	_, hasTable := pt.tables[base]
	if isHuge || hasTable {
		return ErrPageAlreadyMapped
	}
	pt.huge[base] = entry{frame: frame, flags: flags | Present | HugePage}
	return nil
}

func (pt *OffsetPageTable) frameInArena(frame Frame, size uintptr) bool {
	end, ok := buf.CheckedAdd(frame.Start, size)
	return ok && end <= pt.arena.Size()
}

// Translate returns the physical address and entry flags for virt.
func (pt *OffsetPageTable) Translate(virt uintptr) (uintptr, Flags, bool) {
	if e, ok := pt.huge[tableBase(virt)]; ok {
		return e.frame.Start + virt - tableBase(virt), e.flags, true
	}
	page := PageContaining(virt)
	e, ok := pt.entries[page]
	if !ok {
		return 0, 0, false
	}
	return e.frame.Start + virt - page.Start, e.flags, true
}

// MappedPages returns the number of 4 KiB mappings.
func (pt *OffsetPageTable) MappedPages() int {
	return len(pt.entries)
}

// Tables returns the number of level-1 tables allocated so far.
func (pt *OffsetPageTable) Tables() int {
	return len(pt.tables)
}

// word translates a word access, panicking with a heap fault when the access
// cannot be satisfied.
func (pt *OffsetPageTable) word(op string, addr uintptr, write bool) []byte {
	if !buf.IsAligned(addr, buf.WordSize) {
		panic(heap.Fault(op, addr, "unaligned word"))
	}
	phys, flags, ok := pt.Translate(addr)
	if !ok {
		panic(heap.Fault(op, addr, "page not mapped"))
	}
	if write && flags&Writable == 0 {
		panic(heap.Fault(op, addr, "page not writable"))
	}
	frame, err := pt.arena.Frame(buf.AlignDown(phys, PageSize))
	if err != nil {
		panic(heap.Fault(op, addr, err.Error()))
	}
	word, ok := buf.Slice(frame, int(phys%PageSize), buf.WordSize)
	if !ok {
		panic(heap.Fault(op, addr, "word crosses frame"))
	}
	return word
}

// Load64 implements heap.Memory.
func (pt *OffsetPageTable) Load64(addr uintptr) uint64 {
	return buf.U64LE(pt.word("load", addr, false))
}

// Store64 implements heap.Memory.
func (pt *OffsetPageTable) Store64(addr uintptr, v uint64) {
	buf.PutU64LE(pt.word("store", addr, true), v)
}

// Compile-time interface check
var (
	_ Mapper      = (*OffsetPageTable)(nil)
	_ heap.Memory = (*OffsetPageTable)(nil)
)
