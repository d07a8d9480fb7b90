package buf

import "testing"

func TestWordCodec(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	if got := U64LE(data); got != 0xefcdab8967452301 {
		t.Fatalf("U64LE = 0x%x, want 0xefcdab8967452301", got)
	}

	out := make([]byte, WordSize)
	if !PutU64LE(out, 0x4444_4444_0010) {
		t.Fatalf("PutU64LE failed on a full word")
	}
	if got := U64LE(out); got != 0x4444_4444_0010 {
		t.Fatalf("round trip = 0x%x", got)
	}

	short := []byte{0xAA}
	if U64LE(short) != 0 {
		t.Fatalf("U64LE short should be 0")
	}
	if PutU64LE(short, 1) || short[0] != 0xAA {
		t.Fatalf("PutU64LE short should leave buffer untouched")
	}
}
