package correlation

import (
	"fmt"

	"github.com/born-ml/correlation/internal/parallel"
)

// Scheduler decides how the independent work items of a kernel are executed.
//
// Run must call fn exactly once for every i in [0, n) and return only after
// all calls have finished. Work items write disjoint output, so any execution
// order gives bitwise identical results.
type Scheduler interface {
	Run(n int, fn func(i int))
}

// GridScheduler is implemented by schedulers that run a two-level
// (outer, inner) grid of work items natively. Other schedulers receive the grid
// flattened row-major through Run.
type GridScheduler interface {
	Scheduler
	RunGrid(outer, inner int, fn func(o, i int))
}

// runGrid executes fn for every (o, i) in an outer×inner grid on s.
func runGrid(s Scheduler, outer, inner int, fn func(o, i int)) {
	if gs, ok := s.(GridScheduler); ok {
		gs.RunGrid(outer, inner, fn)
		return
	}
	if inner <= 0 {
		return
	}
	s.Run(outer*inner, func(k int) {
		fn(k/inner, k%inner)
	})
}

// Sequential is the single-threaded reference scheduler.
type Sequential struct{}

// Run executes every item in index order on the calling goroutine.
func (Sequential) Run(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}

// RunGrid executes the grid in row-major order on the calling goroutine.
func (Sequential) RunGrid(outer, inner int, fn func(o, i int)) {
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			fn(o, i)
		}
	}
}

// String implements fmt.Stringer.
func (Sequential) String() string {
	return "sequential"
}

// Parallel fans work items out over goroutines.
type Parallel struct {
	Config parallel.Config
}

// NewParallel returns a Parallel scheduler using parallel.DefaultConfig.
func NewParallel() Parallel {
	return Parallel{Config: parallel.DefaultConfig()}
}

// Run executes the items in contiguous chunks, one goroutine per chunk.
func (p Parallel) Run(n int, fn func(i int)) {
	parallel.For(n, fn, p.Config)
}

// RunGrid splits the flattened grid into contiguous chunks.
func (p Parallel) RunGrid(outer, inner int, fn func(o, i int)) {
	parallel.ForGrid(outer, inner, fn, p.Config)
}

// String implements fmt.Stringer.
func (p Parallel) String() string {
	if !p.Config.Enabled {
		return "parallel(disabled)"
	}
	return fmt.Sprintf("parallel(%d workers)", p.Config.NumWorkers)
}
