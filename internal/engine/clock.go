package engine

import "sync/atomic"

// Clock is the monotonic logical clock behind transition sequence numbers.
//
// Every emitted transition is stamped with a strictly increasing seq. The
// journal keys on it for idempotent writes, and ordering between events
// never depends on wall-clock reads.
//
// Thread-safety: safe for concurrent use (atomic operations). Refresh
// passes are serialized anyway, but watch goroutines stamp their reverts
// concurrently.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
