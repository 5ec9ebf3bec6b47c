package store

import "sync/atomic"

// Clock stamps change events with a strictly increasing sequence number.
//
// Seq reflects commit order, never wall time, so subscribers can tell
// redelivered or out-of-band events apart when debugging.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
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
