package alloc

// blockSizes are the fixed-size-block classes.
//
// Each size is a power of two and doubles as the block alignment, so one table
// answers both "is it big enough" and "is it aligned enough". There is no 512
// class: requests between 257 and 1024 bytes share the 1024 class.
var blockSizes = [...]uintptr{8, 16, 32, 64, 128, 256, 1024, 2048}

const numClasses = len(blockSizes)

// BlockSizes returns a copy of the class table.
func BlockSizes() []uintptr {
	out := make([]uintptr, numClasses)
	copy(out, blockSizes[:])
	return out
}

// classIndex returns the smallest class whose size covers both the size and the
// alignment of l. Returns false when l needs the fallback allocator.
func classIndex(l Layout) (int, bool) {
	required := max(l.Size, l.Align)
	for i, size := range blockSizes {
		if size >= required {
			return i, true
		}
	}
	return numClasses, false
}
