package testutil

import (
	"sync"

	"github.com/roach88/rankvault/internal/registry"
)

// EpochClock is a hand-driven Epoch Counter for tests and scenarios.
// It only moves when told to, in whole epochs or whole days.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type EpochClock struct {
	mu           sync.Mutex
	epoch        int64
	epochsPerDay int64
}

// NewEpochClock creates a clock at epoch 0. A zero epochsPerDay means the
// registry default.
func NewEpochClock(epochsPerDay uint64) *EpochClock {
	if epochsPerDay == 0 {
		epochsPerDay = registry.DefaultEpochsPerDay
	}
	return &EpochClock{epochsPerDay: int64(epochsPerDay)}
}

// Now returns the current epoch.
func (c *EpochClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// AdvanceEpochs moves the clock forward by n epochs and returns the new
// epoch. Negative n is ignored; the counter never runs backwards.
func (c *EpochClock) AdvanceEpochs(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.epoch += n
	}
	return c.epoch
}

// AdvanceDays moves the clock forward by n whole days.
func (c *EpochClock) AdvanceDays(n int64) int64 {
	return c.AdvanceEpochs(n * c.epochsPerDay)
}

// Reset moves the clock back to epoch 0 for test reuse.
func (c *EpochClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch = 0
}
