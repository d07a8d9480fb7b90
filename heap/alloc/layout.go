package alloc

import (
	"fmt"

	"github.com/joshuapare/kheap/internal/buf"
)

// Layout is the size and alignment of an allocation request.
//
// The same Layout used for Alloc must be passed to Dealloc. A mismatch is not
// detected and leaves the free lists describing memory that is still in use.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// WordLayout is the layout of a single heap word.
var WordLayout = Layout{Size: buf.WordSize, Align: buf.WordSize}

// NewLayout validates size and align.
func NewLayout(size, align uintptr) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if !l.Valid() {
		return Layout{}, fmt.Errorf("%w: %s", ErrBadLayout, l)
	}
	return l, nil
}

// ArrayLayout is the layout of n consecutive words.
func ArrayLayout(n uintptr) (Layout, error) {
	if n != 0 && n > ^uintptr(0)/buf.WordSize {
		return Layout{}, fmt.Errorf("%w: %d words", ErrBadLayout, n)
	}
	return NewLayout(n*buf.WordSize, buf.WordSize)
}

// Valid reports whether Align is a power of two and Size rounded up to Align
// does not overflow.
func (l Layout) Valid() bool {
	if !buf.IsPowerOfTwo(l.Align) {
		return false
	}
	_, ok := buf.AlignUp(l.Size, l.Align)
	return ok
}

func (l Layout) String() string {
	return fmt.Sprintf("size=%d align=%d", l.Size, l.Align)
}
