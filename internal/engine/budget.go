package engine

import "sync/atomic"

// Budget caps the total number of actions sent by all producers.
//
// TryConsume is a check-and-increment performed with compare-and-swap, so
// sent never exceeds cap while cap > 0 regardless of how many goroutines
// race at the boundary. A cap of 0 means unbounded.
//
// Thread-safety: all methods are safe for concurrent use.
type Budget struct {
	sent atomic.Int64
	cap  atomic.Int64
}

// NewBudget creates a budget with the given cap. Negative caps are treated
// as 0 (unbounded).
func NewBudget(cap int64) *Budget {
	b := &Budget{}
	b.SetCap(cap)
	return b
}

// TryConsume reserves one action. It returns false, without incrementing,
// once the cap has been reached.
func (b *Budget) TryConsume() bool {
	for {
		limit := b.cap.Load()
		cur := b.sent.Load()
		if limit > 0 && cur >= limit {
			return false
		}
		if b.sent.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Reset zeroes the sent counter. Only StopImmediately calls this.
func (b *Budget) Reset() {
	b.sent.Store(0)
}

// Sent returns the number of actions consumed since the last reset.
func (b *Budget) Sent() int64 {
	return b.sent.Load()
}

// Cap returns the current cap (0 = unbounded).
func (b *Budget) Cap() int64 {
	return b.cap.Load()
}

// SetCap changes the cap. Lowering it below Sent makes every further
// TryConsume fail until Reset; sent itself is left alone.
func (b *Budget) SetCap(n int64) {
	if n < 0 {
		n = 0
	}
	b.cap.Store(n)
}

// Exhausted reports whether the next TryConsume would fail.
func (b *Budget) Exhausted() bool {
	limit := b.cap.Load()
	return limit > 0 && b.sent.Load() >= limit
}
