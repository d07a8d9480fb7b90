package buf

// CheckedAdd adds a and b, returning ok = false when the result would wrap.
func CheckedAdd(a, b uintptr) (uintptr, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uintptr) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp rounds addr up to the next multiple of align.
// align must be a power of two; ok is false when the rounded value would wrap.
//
// Example:
//
//	AlignUp(0x1001, 8)  = 0x1008
//	AlignUp(0x1008, 8)  = 0x1008
//	AlignUp(0x1001, 16) = 0x1010
func AlignUp(addr, align uintptr) (uintptr, bool) {
	mask := align - 1
	bumped, ok := CheckedAdd(addr, mask)
	if !ok {
		return 0, false
	}
	return bumped &^ mask, true
}

// AlignDown rounds addr down to a multiple of align (a power of two).
func AlignDown(addr, align uintptr) uintptr {
	return addr &^ (align - 1)
}

// IsAligned reports whether addr is a multiple of align (a power of two).
func IsAligned(addr, align uintptr) bool {
	return addr&(align-1) == 0
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end := off + n
	if end < off || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}
