// clock.go - The sampled auction clock.
//
// Lifecycle classification never hits the network; it reads a
// monotonically advancing "now" resampled once per second.

package auction

import (
	"context"
	"sync/atomic"
	"time"
)

// TickPeriod is how often the ticking clock resamples the wall clock.
const TickPeriod = time.Second

// Clock provides the current unix time in seconds.
type Clock interface {
	Now() uint64
}

// TickingClock samples the wall clock on a fixed period. Reads between
// ticks observe the last sample, so classifications are stable within a
// tick.
type TickingClock struct {
	now atomic.Uint64
}

// NewTickingClock returns a clock seeded with the current wall time.
func NewTickingClock() *TickingClock {
	c := &TickingClock{}
	c.now.Store(uint64(time.Now().Unix()))
	return c
}

// Start resamples the wall clock every TickPeriod until ctx is done.
func (c *TickingClock) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(TickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.now.Store(uint64(time.Now().Unix()))
			}
		}
	}()
}

// Now returns the last sampled unix time.
func (c *TickingClock) Now() uint64 {
	return c.now.Load()
}

// ManualClock is a Clock driven explicitly. For tests and the demo
// scenario.
type ManualClock struct {
	now atomic.Uint64
}

// NewManualClock returns a manual clock set to the given unix time.
func NewManualClock(now uint64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(now)
	return c
}

// Now returns the clock's current time.
func (c *ManualClock) Now() uint64 { return c.now.Load() }

// Set moves the clock to the given time.
func (c *ManualClock) Set(now uint64) { c.now.Store(now) }

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) { c.now.Add(d) }
