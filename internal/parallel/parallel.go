// Package parallel splits index ranges across goroutines for the correlation
// kernels' multi-threaded host strategy.
package parallel

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// WorkersEnv names the environment variable that overrides the worker count.
const WorkersEnv = "CORRELATION_WORKERS"

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum work items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count.
//
// Work items handed to For are whole output or gradient rows, each of which is
// already tens to thousands of multiply-adds, so the chunk floor is small.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4,
	}
}

// Sequential returns a config that runs every item on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// FromEnv applies the CORRELATION_WORKERS override to cfg.
// A value of 1 disables parallelism; an unparsable or non-positive value is an error.
func FromEnv(cfg Config) (Config, error) {
	v, ok := os.LookupEnv(WorkersEnv)
	if !ok || v == "" {
		return cfg, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return cfg, fmt.Errorf("parallel: %s must be a positive integer, got %q", WorkersEnv, v)
	}
	cfg.NumWorkers = n
	cfg.Enabled = n > 1
	return cfg, nil
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Each goroutine receives one contiguous range, so f must only write state
// owned by index i. Falls back to sequential execution if parallelism is
// disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForGrid runs f(outer, inner) over an outer×inner grid, flattened row-major.
// The correlation backward pass uses it for its (batch, row) work items.
func ForGrid(outer, inner int, f func(o, i int), cfg Config) {
	if inner <= 0 {
		return
	}
	For(outer*inner, func(k int) {
		f(k/inner, k%inner)
	}, cfg)
}
