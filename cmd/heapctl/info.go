package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/kernel"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Boot the heap and report its geometry and mappings",
		Long: `The info command boots a kernel and reports the heap geometry, the
physical memory and page tables used to map it, and the allocator's initial
free memory.

Example:
  heapctl info
  heapctl info --strategy bump --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
	return cmd
}

type infoReport struct {
	Strategy       string    `json:"strategy"`
	HeapStart      string    `json:"heap_start"`
	HeapSize       uintptr   `json:"heap_size"`
	PhysicalMemory uintptr   `json:"physical_memory"`
	UsableMemory   uintptr   `json:"usable_memory"`
	MappedPages    int       `json:"mapped_pages"`
	PageTables     int       `json:"page_tables"`
	FramesUsed     int       `json:"frames_used"`
	FreeRegions    int       `json:"free_regions"`
	FreeBytes      uintptr   `json:"free_bytes"`
	BlockSizes     []uintptr `json:"block_sizes,omitempty"`
}

func runInfo() error {
	k, err := bootKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	cfg := kernel.DefaultConfig()
	info := infoReport{
		Strategy:       k.Heap.Strategy().String(),
		HeapStart:      fmt.Sprintf("%#x", kernel.HeapStart),
		HeapSize:       kernel.HeapSize,
		PhysicalMemory: k.PhysicalMemory(),
		UsableMemory:   cfg.MemoryMap.UsableBytes(),
		MappedPages:    k.PageTable.MappedPages(),
		PageTables:     k.PageTable.Tables(),
		FramesUsed:     k.Frames.Allocated(),
	}
	for _, r := range k.Heap.FreeRegions() {
		info.FreeRegions++
		info.FreeBytes += r.Size
	}
	if k.Heap.Strategy() == alloc.StrategyFixedSizeBlock {
		info.BlockSizes = alloc.BlockSizes()
	}

	// Output as JSON if requested
	if jsonOut {
		return printJSON(info)
	}

	printInfo("\nHeap:\n")
	printInfo("  Strategy: %s\n", info.Strategy)
	printInfo("  Start: %s\n", info.HeapStart)
	printInfo("  Size: %s\n", formatBytes(info.HeapSize))
	printInfo("  Free: %s in %d region(s)\n", formatBytes(info.FreeBytes), info.FreeRegions)
	if len(info.BlockSizes) > 0 {
		printInfo("  Block sizes: %v\n", info.BlockSizes)
	}

	printInfo("\nMemory:\n")
	printInfo("  Physical: %s (%s usable)\n", formatBytes(info.PhysicalMemory), formatBytes(info.UsableMemory))
	printInfo("  Mapped pages: %d\n", info.MappedPages)
	printInfo("  Page tables: %d\n", info.PageTables)
	printInfo("  Frames used: %d\n", info.FramesUsed)

	if verbose {
		printInfo("\nMappings:\n")
		for off := uintptr(0); off < kernel.HeapSize; off += 4096 {
			virt := kernel.HeapStart + off
			phys, flags, ok := k.PageTable.Translate(virt)
			if !ok {
				continue
			}
			printInfo("  %#x -> %#x %s\n", virt, phys, flags)
		}
	}
	return nil
}
