package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace indicates that no free memory large enough for the request was found.
	// Nothing is retried or reclaimed; the caller decides whether this is fatal.
	ErrNoSpace = errors.New("alloc: heap exhausted")

	// ErrBadLayout indicates a layout whose alignment is not a power of two or whose
	// size overflows when rounded up to the alignment.
	ErrBadLayout = errors.New("alloc: invalid layout")

	// ErrBadRegion indicates a heap region that cannot host the allocator
	// (empty, wrapping, or not aligned for a free-list node).
	ErrBadRegion = errors.New("alloc: invalid heap region")

	// ErrAlreadyInitialized indicates a second Init on the same allocator.
	ErrAlreadyInitialized = errors.New("alloc: already initialized")

	// ErrNotInitialized indicates use of an allocator before Init.
	ErrNotInitialized = errors.New("alloc: not initialized")

	// ErrUnknownStrategy indicates an allocator strategy name or value that does not exist.
	ErrUnknownStrategy = errors.New("alloc: unknown strategy")

	// ErrInvariant is wrapped by the panic raised when free-list structure is found
	// to be inconsistent (misaligned or undersized node, corrupted link, bump
	// underflow). There is no recovery: continuing would corrupt the heap.
	ErrInvariant = errors.New("alloc: free-list invariant violated")
)

// invariantf aborts with an error wrapping ErrInvariant.
func invariantf(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrInvariant}, args...)...))
}
