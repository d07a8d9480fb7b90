package spin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMutex_ExcludesConcurrentWriters increments a plain counter from several
// goroutines; any overlap inside the critical section would lose updates.
func TestMutex_ExcludesConcurrentWriters(t *testing.T) {
	const (
		workers    = 8
		iterations = 5000
	)

	var (
		mu      Mutex
		counter int
		wg      sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				mu.Lock()
				counter++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iterations, counter)
}

func TestMutex_TryLock(t *testing.T) {
	var mu Mutex

	require.True(t, mu.TryLock(), "free lock should be acquired")
	assert.False(t, mu.TryLock(), "held lock should not be acquired again")

	mu.Unlock()
	assert.True(t, mu.TryLock(), "lock should be free after Unlock")
	mu.Unlock()
}

func TestMutex_UnlockUnlockedPanics(t *testing.T) {
	var mu Mutex
	assert.Panics(t, func() { mu.Unlock() })
}

type state struct {
	live int
}

func TestLocked_WithReleasesOnPanic(t *testing.T) {
	l := NewLocked(&state{})

	assert.Panics(t, func() {
		l.With(func(s *state) {
			s.live++
			panic("boom")
		})
	})

	// The lock must have been released by the deferred unlock.
	require.True(t, l.mu.TryLock(), "lock leaked after panic")
	l.mu.Unlock()

	got := Do(l, func(s *state) int { return s.live })
	assert.Equal(t, 1, got)
}
