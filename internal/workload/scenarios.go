package workload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eapache/queue"

	"github.com/joshuapare/kheap/heap"
	"github.com/joshuapare/kheap/heap/alloc"
)

const (
	largeVecLen = 1000
	smallVecLen = 500

	// fifoWindow is how many blocks fifo-lifetimes keeps alive at once.
	fifoWindow = 64
	fifoRounds = 10000

	interleavedWorkers = 2
	interleavedRounds  = 5000
)

func init() {
	register(Scenario{
		Name:        "simple",
		Description: "two boxes holding 41 and 13",
		run:         runSimple,
	})
	register(Scenario{
		Name:        "large-vec",
		Description: fmt.Sprintf("push 0..%d into a vector and sum it", largeVecLen-1),
		run:         func(a Allocator, _ uintptr) (Result, error) { return runVec(a, largeVecLen) },
	})
	register(Scenario{
		Name:        "vec-500",
		Description: fmt.Sprintf("push 0..%d into a vector and sum it", smallVecLen-1),
		run:         func(a Allocator, _ uintptr) (Result, error) { return runVec(a, smallVecLen) },
	})
	register(Scenario{
		Name:        "many-boxes",
		Description: "allocate and drop one box per heap byte",
		run:         func(a Allocator, heapSize uintptr) (Result, error) { return runManyBoxes(a, heapSize, false) },
	})
	register(Scenario{
		Name:        "many-boxes-long-lived",
		Description: "many-boxes while one box stays live throughout",
		run:         func(a Allocator, heapSize uintptr) (Result, error) { return runManyBoxes(a, heapSize, true) },
	})
	register(Scenario{
		Name:        "fifo-lifetimes",
		Description: fmt.Sprintf("mixed-size blocks of 1-32 words freed oldest first, %d live", fifoWindow),
		run:         runFIFO,
	})
	register(Scenario{
		Name:        "interleaved",
		Description: fmt.Sprintf("%d goroutines allocating and dropping boxes concurrently", interleavedWorkers),
		run:         runInterleaved,
	})
}

func runSimple(a Allocator, _ uintptr) (Result, error) {
	x, err := NewBox(a, 41)
	if err != nil {
		return Result{}, err
	}
	defer x.Free()
	y, err := NewBox(a, 13)
	if err != nil {
		return Result{Allocs: 1}, err
	}
	defer y.Free()

	vx, _ := x.Get()
	vy, _ := y.Get()
	if err := errors.Join(checkValue("x", vx, 41), checkValue("y", vy, 13)); err != nil {
		return Result{Allocs: 2}, err
	}
	return Result{Allocs: 2, Checksum: vx + vy}, nil
}

func runVec(a Allocator, n int) (Result, error) {
	v := NewVec(a)
	defer v.Free()

	allocs := 0
	for i := range n {
		before := v.Cap()
		if err := v.Push(uint64(i)); err != nil {
			return Result{Allocs: allocs}, err
		}
		if v.Cap() != before {
			allocs++
		}
	}
	sum := v.Sum()
	want := uint64(n) * uint64(n-1) / 2
	if err := checkValue("sum", sum, want); err != nil {
		return Result{Allocs: allocs}, err
	}
	return Result{Allocs: allocs, Checksum: sum}, nil
}

func runManyBoxes(a Allocator, heapSize uintptr, longLived bool) (Result, error) {
	res := Result{}
	var anchor *Box
	if longLived {
		var err error
		if anchor, err = NewBox(a, 1); err != nil {
			return res, err
		}
		defer anchor.Free()
		res.Allocs++
	}

	for i := range uint64(heapSize) {
		b, err := NewBox(a, i)
		if err != nil {
			return res, fmt.Errorf("box %d: %w", i, err)
		}
		res.Allocs++
		v, _ := b.Get()
		b.Free()
		if err := checkValue("box", v, i); err != nil {
			return res, err
		}
		res.Checksum++
	}

	if anchor != nil {
		v, _ := anchor.Get()
		if err := checkValue("long-lived box", v, 1); err != nil {
			return res, err
		}
	}
	return res, nil
}

// fifoBlock is a live block in fifo-lifetimes. Its first word holds its tag.
type fifoBlock struct {
	addr   uintptr
	layout alloc.Layout
	tag    uint64
}

// runFIFO frees mixed sizes in allocation order. The linked-list free list
// fills up with fragments too small for the next request and runs out long
// before the last round; fixed-size-block recycles its class blocks and does not.
func runFIFO(a Allocator, _ uintptr) (Result, error) {
	mem := a.Memory()
	live := queue.New()
	res := Result{}

	release := func() error {
		blk := live.Remove().(fifoBlock)
		got := mem.Load64(blk.addr)
		a.Dealloc(blk.addr, blk.layout)
		if err := checkValue(fmt.Sprintf("block %d", blk.tag), got, blk.tag); err != nil {
			return err
		}
		res.Checksum += got
		return nil
	}
	defer func() {
		for live.Length() > 0 {
			blk := live.Remove().(fifoBlock)
			a.Dealloc(blk.addr, blk.layout)
		}
	}()

	for i := range fifoRounds {
		l, err := alloc.ArrayLayout(uintptr(1 + i%32))
		if err != nil {
			return res, err
		}
		addr, err := a.Alloc(l)
		if err != nil {
			return res, fmt.Errorf("block %d (%s): %w", i, l, err)
		}
		res.Allocs++
		tag := uint64(i)
		mem.Store64(addr, tag)
		live.Add(fifoBlock{addr: addr, layout: l, tag: tag})

		if live.Length() > fifoWindow {
			if err := release(); err != nil {
				return res, err
			}
		}
	}
	for live.Length() > 0 {
		if err := release(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func runInterleaved(a Allocator, _ uintptr) (Result, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		res    Result
		errs   []error
		worker = func(id int) {
			defer wg.Done()
			allocs, sum, err := interleavedWorker(a, a.Memory(), id)
			mu.Lock()
			defer mu.Unlock()
			res.Allocs += allocs
			res.Checksum += sum
			if err != nil {
				errs = append(errs, fmt.Errorf("worker %d: %w", id, err))
			}
		}
	)
	for id := range interleavedWorkers {
		wg.Add(1)
		go worker(id)
	}
	wg.Wait()
	return res, errors.Join(errs...)
}

func interleavedWorker(a Allocator, mem heap.Memory, id int) (int, uint64, error) {
	var sum uint64
	for i := range interleavedRounds {
		tag := uint64(id)<<32 | uint64(i)
		b, err := NewBox(a, tag)
		if err != nil {
			return i, sum, err
		}
		got := mem.Load64(b.Addr())
		b.Free()
		if err := checkValue("box", got, tag); err != nil {
			return i + 1, sum, err
		}
		sum += uint64(i)
	}
	return interleavedRounds, sum, nil
}
