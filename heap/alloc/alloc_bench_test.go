package alloc

import (
	"testing"
)

// BenchmarkAllocFree measures a single alloc/free pair of one word.
// Fixed-size-block should stay flat once its class is populated.
func BenchmarkAllocFree(b *testing.B) {
	for _, s := range Strategies() {
		b.Run(s.String(), func(b *testing.B) {
			a, _ := newInitialized(b, s, testHeapSize)

			b.ResetTimer()
			b.ReportAllocs()

			for range b.N {
				addr, err := a.Alloc(WordLayout)
				if err != nil {
					b.Fatal(err)
				}
				a.Dealloc(addr, WordLayout)
			}
		})
	}
}

// BenchmarkAllocFree_Mixed keeps 32 blocks of varying sizes live and replaces
// one per iteration, which walks the linked list past fragmented regions.
func BenchmarkAllocFree_Mixed(b *testing.B) {
	for _, s := range []Strategy{StrategyFixedSizeBlock, StrategyLinkedList} {
		b.Run(s.String(), func(b *testing.B) {
			a, _ := newInitialized(b, s, testHeapSize)

			const window = 32
			var addrs [window]uintptr
			var layouts [window]Layout
			for i := range window {
				layouts[i] = Layout{Size: uintptr(16 + (i%8)*48), Align: 8}
				addr, err := a.Alloc(layouts[i])
				if err != nil {
					b.Fatal(err)
				}
				addrs[i] = addr
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := range b.N {
				slot := i % window
				a.Dealloc(addrs[slot], layouts[slot])
				addr, err := a.Alloc(layouts[slot])
				if err != nil {
					b.Fatal(err)
				}
				addrs[slot] = addr
			}
		})
	}
}

// BenchmarkHandle_AllocFree measures the same pair through the spin lock.
func BenchmarkHandle_AllocFree(b *testing.B) {
	h, _ := newTestHandle(b, StrategyFixedSizeBlock, testHeapSize)

	b.ResetTimer()
	b.ReportAllocs()

	for range b.N {
		addr, err := h.Alloc(WordLayout)
		if err != nil {
			b.Fatal(err)
		}
		h.Dealloc(addr, WordLayout)
	}
}
