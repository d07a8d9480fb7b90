package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/heap/alloc"
	"github.com/joshuapare/kheap/internal/buf"
	"github.com/joshuapare/kheap/internal/workload"
	"github.com/joshuapare/kheap/kernel"
)

const (
	glyphFree    = '░'
	glyphPartial = '▒'
	glyphUsed    = '█'
)

var (
	mapCell  uint
	mapWidth int
	mapHold  int
)

func init() {
	rootCmd.AddCommand(newMapCmd())
}

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map [scenario]",
		Short: "Draw which parts of the heap are on the free list",
		Long: `The map command boots a kernel, optionally runs a workload, optionally
leaves some allocations live, and draws the heap one cell per --cell bytes:

  ░  entirely on the free list
  ▒  partly on the free list
  █  allocated, alignment padding, or parked on a size-class list

--hold N allocates N blocks of 1 to 32 words and frees every other one,
which shows how each strategy copes with holes.

Example:
  heapctl map --hold 200 --strategy linked-list
  heapctl map fifo-lifetimes --encoding cp437`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(args)
		},
	}
	cmd.Flags().UintVar(&mapCell, "cell", 256, "Bytes per map cell")
	cmd.Flags().IntVar(&mapWidth, "width", 50, "Cells per line")
	cmd.Flags().IntVar(&mapHold, "hold", 0, "Leave this many blocks allocated, every other one freed")
	return cmd
}

type mapReport struct {
	Strategy     string        `json:"strategy"`
	Scenario     string        `json:"scenario,omitempty"`
	Held         int           `json:"held"`
	FreeRegions  []heap.Region `json:"free_regions"`
	FreeBytes    uintptr       `json:"free_bytes"`
	ClassLengths []int         `json:"class_lengths,omitempty"`
}

func runMap(args []string) error {
	if mapCell == 0 || mapCell%8 != 0 {
		return fmt.Errorf("--cell must be a positive multiple of 8, got %d", mapCell)
	}
	if uintptr(mapCell) > kernel.HeapSize {
		return fmt.Errorf("--cell must not exceed the %d-byte heap, got %d", kernel.HeapSize, mapCell)
	}
	if mapWidth <= 0 {
		return fmt.Errorf("--width must be positive, got %d", mapWidth)
	}

	k, err := bootKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	report := mapReport{Strategy: k.Heap.Strategy().String()}
	if len(args) == 1 {
		report.Scenario = args[0]
		if _, err := workload.Run(args[0], k.Heap, kernel.HeapSize); err != nil {
			printError("%v\n", err)
		}
	}
	if report.Held, err = holdBlocks(k.Heap, mapHold); err != nil {
		printError("%v\n", err)
	}

	report.FreeRegions = k.Heap.FreeRegions()
	for _, r := range report.FreeRegions {
		report.FreeBytes += r.Size
	}
	k.Heap.Inspect(func(a alloc.Allocator) {
		if fsb, ok := a.(*alloc.FixedSizeBlock); ok {
			report.ClassLengths = fsb.ClassLengths()
		}
	})

	if jsonOut {
		return printJSON(report)
	}
	if quiet {
		return nil
	}

	w, closeFn, err := consoleWriter(os.Stdout)
	if err != nil {
		return err
	}
	renderMap(w, k.Heap.Region(), report.FreeRegions, uintptr(mapCell), mapWidth)
	fmt.Fprintf(w, "\n%c free  %c partial  %c in use   (%d bytes per cell)\n",
		glyphFree, glyphPartial, glyphUsed, mapCell)
	fmt.Fprintf(w, "%d free region(s), %d bytes on the free list, %d block(s) held\n",
		len(report.FreeRegions), report.FreeBytes, report.Held)
	if report.ClassLengths != nil {
		fmt.Fprintf(w, "size-class free blocks:")
		for i, size := range alloc.BlockSizes() {
			fmt.Fprintf(w, " %d:%d", size, report.ClassLengths[i])
		}
		fmt.Fprintln(w)
	}
	return closeFn()
}

// holdBlocks allocates n blocks of 1 to 32 words and frees every other one.
// It returns how many blocks stay allocated.
func holdBlocks(h *kernel.Heap, n int) (int, error) {
	held := 0
	for i := range n {
		l, err := alloc.ArrayLayout(uintptr(1 + (i*7)%32))
		if err != nil {
			return held, err
		}
		addr, err := h.Alloc(l)
		if err != nil {
			return held, fmt.Errorf("hold block %d (%s): %w", i, l, err)
		}
		if i%2 == 1 {
			h.Dealloc(addr, l)
			continue
		}
		held++
	}
	return held, nil
}

// renderMap draws region as rows of width cells, each cell bytes wide, by how
// much of the cell the free regions cover.
func renderMap(w io.Writer, region heap.Region, free []heap.Region, cell uintptr, width int) {
	var line strings.Builder
	col := 0
	for start, end := region.Start, region.Start; start < region.End(); start = end {
		// A cell running past the top of the address space is clipped to
		// the region.
		next, ok := buf.CheckedAdd(start, cell)
		if !ok {
			next = region.End()
		}
		end = min(next, region.End())
		if col == 0 {
			fmt.Fprintf(&line, "%#x ", start)
		}

		var covered uintptr
		for _, r := range free {
			lo, hi := max(start, r.Start), min(end, r.End())
			if lo < hi {
				covered += hi - lo
			}
		}
		switch {
		case covered == 0:
			line.WriteRune(glyphUsed)
		case covered >= end-start:
			line.WriteRune(glyphFree)
		default:
			line.WriteRune(glyphPartial)
		}

		col++
		if col == width {
			fmt.Fprintln(w, line.String())
			line.Reset()
			col = 0
		}
	}
	if col > 0 {
		fmt.Fprintln(w, line.String())
	}
}
