// Package heap describes the memory the kernel heap lives in.
//
// # Overview
//
// A Region is the fixed virtual address range handed to an allocator at boot.
// It is mapped, writable and owned by the heap for the life of the kernel; it is
// never resized or released.
//
// Memory is the word-level view of that range. Allocators only ever touch heap
// memory through Load64 and Store64, which keeps every read and write of raw
// heap bytes behind one small interface:
//
//   - Flat: a contiguous byte slice pretending to live at a virtual base address.
//     Used by unit tests and anywhere a page table would only get in the way.
//   - paging.OffsetPageTable: the boot path, where every access is translated
//     through the page table into the physical arena.
//
// # Words
//
// A word is 8 bytes, little-endian, at an 8-byte-aligned address. Free-list nodes,
// block links and the values stored by the workload types are all words, so a
// word never straddles a page.
package heap
