package parallel

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

func TestChainsRunsEveryChain(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)

	err := Chains(context.Background(), 4, func(ctx context.Context, chain int) error {
		mu.Lock()
		defer mu.Unlock()
		seen[chain] = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true, 3: true}, seen)
}

func TestChainsReturnsFirstError(t *testing.T) {
	boom := errors.New("chain 2 diverged")

	err := Chains(context.Background(), 4, func(ctx context.Context, chain int) error {
		if chain == 2 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestChainsRecoversPanic(t *testing.T) {
	err := Chains(context.Background(), 2, func(ctx context.Context, chain int) error {
		if chain == 1 {
			panic("mat: dimension mismatch")
		}
		return nil
	})

	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "mat: dimension mismatch", panicErr.PanicValue)
}

func TestChainsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := Chains(ctx, 3, func(ctx context.Context, chain int) error {
		calls.Add(1)
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestChainsRejectsZero(t *testing.T) {
	err := Chains(context.Background(), 0, func(ctx context.Context, chain int) error { return nil })
	assert.Error(t, err)
}

func TestParallelizeCoversRange(t *testing.T) {
	tests := []struct {
		name  string
		items int
	}{
		{name: "empty", items: 0},
		{name: "single", items: 1},
		{name: "many", items: 1037},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := make([]int32, tt.items)
			Parallelize(tt.items, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
			})
			for i, h := range hits {
				assert.Equal(t, int32(1), h, "index %d", i)
			}
		})
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}
