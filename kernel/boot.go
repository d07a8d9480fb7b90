package kernel

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/logger"
	"github.com/joshuapare/kheap/internal/paging"
	"github.com/joshuapare/kheap/internal/physmem"
)

// ErrBadConfig is returned by Boot for an unusable configuration.
var ErrBadConfig = errors.New("kernel: invalid config")

// Config describes the machine the kernel boots on.
type Config struct {
	// Strategy selects the heap allocator.
	Strategy alloc.Strategy

	// PhysicalMemory is the size of simulated RAM in bytes.
	PhysicalMemory uintptr

	// MemoryMap is the boot memory map. Usable regions must lie inside
	// PhysicalMemory.
	MemoryMap paging.MemoryMap
}

// DefaultConfig returns a 4 MiB machine whose first MiB is reserved, using
// the fixed-size-block allocator.
func DefaultConfig() Config {
	const mib = 1 << 20
	return Config{
		Strategy:       alloc.StrategyFixedSizeBlock,
		PhysicalMemory: 4 * mib,
		MemoryMap: paging.MemoryMap{
			{Start: 0, End: mib, Kind: paging.Reserved},
			{Start: mib, End: 4 * mib, Kind: paging.Usable},
		},
	}
}

// Validate checks that the memory map fits physical memory.
func (c Config) Validate() error {
	if c.PhysicalMemory == 0 || c.PhysicalMemory%physmem.PageSize != 0 {
		return fmt.Errorf("%w: physical memory %d is not a non-zero multiple of %d",
			ErrBadConfig, c.PhysicalMemory, physmem.PageSize)
	}
	for _, r := range c.MemoryMap {
		if r.End < r.Start {
			return fmt.Errorf("%w: memory region [%#x, %#x) is inverted", ErrBadConfig, r.Start, r.End)
		}
		if r.Kind == paging.Usable && r.End > c.PhysicalMemory {
			return fmt.Errorf("%w: usable region [%#x, %#x) beyond physical memory %#x",
				ErrBadConfig, r.Start, r.End, c.PhysicalMemory)
		}
	}
	return nil
}

// Kernel is a booted kernel: physical memory, its page table and frame
// allocator, and the initialized heap.
type Kernel struct {
	Heap      *Heap
	PageTable *paging.OffsetPageTable
	Frames    *paging.BootInfoFrameAllocator

	arena *physmem.Arena
}

// Boot brings up memory and the heap. Any error leaves nothing allocated.
func Boot(cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h, err := NewHeap(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	arena, err := physmem.New(cfg.PhysicalMemory)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		Heap:      h,
		PageTable: paging.NewOffsetPageTable(arena),
		Frames:    paging.NewBootInfoFrameAllocator(cfg.MemoryMap),
		arena:     arena,
	}
	logger.Debug("booting", "strategy", cfg.Strategy.String(),
		"physical_memory", cfg.PhysicalMemory, "usable", cfg.MemoryMap.UsableBytes())

	if err := InitHeap(k.PageTable, k.Frames, k.Heap); err != nil {
		_ = arena.Close()
		return nil, fmt.Errorf("heap initialization failed: %w", err)
	}
	return k, nil
}

// MustBoot is like Boot but panics on error. Without a heap there is nothing
// left to do.
func MustBoot(cfg Config) *Kernel {
	k, err := Boot(cfg)
	if err != nil {
		panic(err)
	}
	return k
}

// PhysicalMemory returns the size of simulated RAM, 0 after Close.
func (k *Kernel) PhysicalMemory() uintptr {
	return k.arena.Size()
}

// Close releases physical memory. The heap must not be used afterwards.
func (k *Kernel) Close() error {
	return k.arena.Close()
}
