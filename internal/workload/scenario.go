package workload

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrUnknownScenario is returned by Run for a name not in the registry.
var ErrUnknownScenario = errors.New("workload: unknown scenario")

// ErrCorrupted is returned when a value read back from the heap differs from
// the value written, meaning two live allocations overlapped.
var ErrCorrupted = errors.New("workload: heap value corrupted")

// Result summarizes one scenario run.
type Result struct {
	Scenario string        `json:"scenario"`
	Allocs   int           `json:"allocs"`
	Checksum uint64        `json:"checksum"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Scenario is a named workload.
type Scenario struct {
	Name        string
	Description string

	run func(a Allocator, heapSize uintptr) (Result, error)
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	if _, dup := registry[s.Name]; dup {
		panic("workload: duplicate scenario " + s.Name)
	}
	registry[s.Name] = s
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the scenario called name.
func Lookup(name string) (Scenario, bool) {
	s, ok := registry[name]
	return s, ok
}

// Run executes the scenario called name against a. heapSize bounds the
// iteration counts of the scenarios that scale with the heap.
func Run(name string, a Allocator, heapSize uintptr) (Result, error) {
	s, ok := registry[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	start := time.Now()
	res, err := s.run(a, heapSize)
	res.Scenario = name
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, fmt.Errorf("scenario %s: %w", name, err)
	}
	return res, nil
}

func checkValue(what string, got, want uint64) error {
	if got != want {
		return fmt.Errorf("%w: %s = %d, want %d", ErrCorrupted, what, got, want)
	}
	return nil
}
