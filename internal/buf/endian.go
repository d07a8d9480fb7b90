// Package buf contains overflow-checked address arithmetic and the little-endian
// word codec used for everything written into heap memory.
package buf

import "encoding/binary"

// WordSize is the size in bytes of one heap word.
const WordSize = 8

// U64LE reads a little-endian uint64 from b. Returns 0 when b is too short.
func U64LE(b []byte) uint64 {
	if len(b) < WordSize {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// PutU64LE writes v into b as a little-endian uint64.
// It reports false, leaving b untouched, when b is too short.
func PutU64LE(b []byte, v uint64) bool {
	if len(b) < WordSize {
		return false
	}
	binary.LittleEndian.PutUint64(b, v)
	return true
}
