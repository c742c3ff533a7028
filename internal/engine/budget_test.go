package engine

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBudget_WithinCap(t *testing.T) {
	b := NewBudget(10)

	for i := 0; i < 10; i++ {
		assert.True(t, b.TryConsume(), "consume %d should succeed", i+1)
	}
	assert.Equal(t, int64(10), b.Sent())
	assert.True(t, b.Exhausted())

	assert.False(t, b.TryConsume())
	assert.Equal(t, int64(10), b.Sent(), "a refused consume must not increment")
}

func TestBudget_Unbounded(t *testing.T) {
	b := NewBudget(0)

	for i := 0; i < 1000; i++ {
		require.True(t, b.TryConsume())
	}
	assert.Equal(t, int64(1000), b.Sent())
	assert.False(t, b.Exhausted())
}

func TestBudget_NegativeCapIsUnbounded(t *testing.T) {
	b := NewBudget(-3)
	assert.Equal(t, int64(0), b.Cap())
	assert.True(t, b.TryConsume())
}

func TestBudget_Reset(t *testing.T) {
	b := NewBudget(5)
	for b.TryConsume() {
	}
	assert.Equal(t, int64(5), b.Sent())

	b.Reset()
	assert.Equal(t, int64(0), b.Sent())

	for i := 0; i < 5; i++ {
		assert.True(t, b.TryConsume())
	}
	assert.False(t, b.TryConsume())
}

func TestBudget_SetCapBelowSent(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 8; i++ {
		b.TryConsume()
	}

	b.SetCap(5)
	assert.True(t, b.Exhausted())
	assert.False(t, b.TryConsume())
	assert.Equal(t, int64(8), b.Sent())

	b.SetCap(0)
	assert.True(t, b.TryConsume())
}

func TestBudget_ConcurrentProducersNeverOvershoot(t *testing.T) {
	for _, limit := range []int64{1, 5, 100, 997} {
		b := NewBudget(limit)

		const producers = 32
		const attempts = 200

		var granted atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})

		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < attempts; i++ {
					if b.TryConsume() {
						granted.Add(1)
					}
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, limit, b.Sent(), "cap %d", limit)
		assert.Equal(t, limit, granted.Load(), "cap %d", limit)
	}
}

func TestBudget_ResetDuringConcurrentConsume(t *testing.T) {
	b := NewBudget(50)

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				b.TryConsume()
				assert.LessOrEqual(t, b.Sent(), int64(50))
			}
		}()
	}
	for i := 0; i < 20; i++ {
		b.Reset()
	}
	wg.Wait()

	b.Reset()
	assert.Equal(t, int64(0), b.Sent())
	for i := 0; i < 50; i++ {
		require.True(t, b.TryConsume())
	}
	assert.False(t, b.TryConsume())
}
