package engine

import "sync/atomic"

// Clock is the journal's logical clock. Every journaled call is stamped
// with the next seq; wall time never orders anything.
//
// The Epoch Counter is a different thing: it arrives with each call and the
// engine only checks it. Clock counts calls, not time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock for an empty journal. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt resumes a clock after the last seq already in the journal.
func NewClockAt(last int64) *Clock {
	c := &Clock{}
	c.seq.Store(last)
	return c
}

// Next reserves the next seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last reserved seq.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// rollback releases seq if it is still the latest reservation. Execute uses
// it when the store rejects a commit, so the journal has no gaps.
func (c *Clock) rollback(seq int64) {
	c.seq.CompareAndSwap(seq, seq-1)
}
