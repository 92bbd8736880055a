// Package parallel fans sampler chains and per-column work out over goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Chains runs fn once per chain id in [0, n) concurrently and waits for all of
// them. The first error cancels ctx for the remaining chains and is returned.
// A panic inside fn is converted into an error for that chain.
func Chains(ctx context.Context, n int, fn func(ctx context.Context, chain int) error) error {
	if n <= 0 {
		return errors.NewValidationError("chains", "must be positive", n)
	}
	g, gctx := errgroup.WithContext(ctx)
	for chain := 0; chain < n; chain++ {
		g.Go(func() (err error) {
			defer errors.Recover(&err, "chain")
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, chain)
		})
	}
	return g.Wait()
}

// Parallelize splits items into one contiguous range per CPU core and calls fn
// for every range concurrently.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := min(start+chunkSize, items)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
