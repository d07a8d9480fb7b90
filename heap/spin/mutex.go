// Package spin provides the busy-wait mutual exclusion that guards all allocator
// state.
//
// There is no scheduler to block on underneath the heap, so acquisition spins on an
// atomic flag until it wins: no yielding, no timeout, no cancellation. The lock is
// not reentrant. Acquiring it again from the same execution context (an interrupt
// handler allocating while the interrupted code holds the lock) deadlocks; callers
// that can re-enter must mask interrupts around heap use themselves.
package spin

import "sync/atomic"

// Mutex is a test-and-test-and-set spin lock. The zero value is unlocked.
type Mutex struct {
	held atomic.Bool
}

// Lock spins until the lock is acquired.
func (m *Mutex) Lock() {
	for {
		// Spin on a plain load so contending CPUs don't hammer the cache line
		// with failed swaps.
		for m.held.Load() {
		}
		if m.held.CompareAndSwap(false, true) {
			return
		}
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (m *Mutex) TryLock() bool {
	return !m.held.Load() && m.held.CompareAndSwap(false, true)
}

// Unlock releases the lock. Unlocking an unlocked Mutex panics.
func (m *Mutex) Unlock() {
	if !m.held.CompareAndSwap(true, false) {
		panic("spin: unlock of unlocked mutex")
	}
}

// Locked is a value that can only be reached while holding its Mutex.
type Locked[T any] struct {
	mu    Mutex
	inner T
}

// NewLocked wraps inner.
func NewLocked[T any](inner T) *Locked[T] {
	return &Locked[T]{inner: inner}
}

// With runs fn with exclusive access to the wrapped value. The lock is released
// when fn returns, including by panic.
func (l *Locked[T]) With(fn func(T)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.inner)
}

// Do is With for functions that produce a result.
func Do[T, R any](l *Locked[T], fn func(T) R) R {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.inner)
}
