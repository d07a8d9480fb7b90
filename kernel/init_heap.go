package kernel

import (
	"fmt"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/internal/logger"
	"github.com/joshuapare/kheap/internal/paging"
)

// InitHeap maps every page of [HeapStart, HeapStart+HeapSize) writable, taking
// frames from frames, then initializes h over the range.
//
// The first mapping error aborts initialization. Pages mapped before it stay
// mapped and h stays uninitialized.
func InitHeap(space AddressSpace, frames paging.FrameAllocator, h *Heap) error {
	region := heap.Region{Start: HeapStart, Size: HeapSize}
	return initHeapAt(space, frames, h, region)
}

func initHeapAt(space AddressSpace, frames paging.FrameAllocator, h *Heap, region heap.Region) error {
	mapped := 0
	for page := range paging.Pages(region.Start, region.End()-1) {
		frame, ok := frames.AllocateFrame()
		if !ok {
			return fmt.Errorf("map heap %s: %w", page, paging.ErrFrameAllocationFailed)
		}
		if err := space.MapTo(page, frame, paging.Present|paging.Writable, frames); err != nil {
			return fmt.Errorf("map heap %s to %s: %w", page, frame, err)
		}
		logger.Debug("mapped heap page", "page", page.Start, "frame", frame.Start)
		mapped++
	}

	if err := h.Init(space, region); err != nil {
		return fmt.Errorf("init heap: %w", err)
	}
	logger.Info("heap initialized",
		"start", fmt.Sprintf("%#x", region.Start), "size", region.Size,
		"pages", mapped, "strategy", h.Strategy().String())
	return nil
}
