package clock

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// FakeClock is a deterministic Clock on top of clockwork's fake. Unlike
// clockwork, Sleep does not block: it advances the fake time by the
// requested duration and records the call, so synchronous retry loops
// can be measured exactly. Tickers fire only when time moves past their
// next deadline.
type FakeClock struct {
	fc *clockwork.FakeClock

	mu     sync.Mutex
	sleeps []time.Duration
}

// Fake returns a FakeClock starting at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{fc: clockwork.NewFakeClockAt(initial)}
}

func (c *FakeClock) Now() time.Time { return c.fc.Now() }

// Sleep records d and advances the clock by it.
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	if d > 0 {
		c.fc.Advance(d)
	}
}

// Sleeps returns a copy of every duration passed to Sleep so far.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Slept returns the total time spent in Sleep.
func (c *FakeClock) Slept() time.Duration {
	var total time.Duration
	for _, d := range c.Sleeps() {
		total += d
	}
	return total
}

// NewTicker registers a ticker that fires on Advance. Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	return wrapTicker(c.fc.NewTicker(d))
}

// Advance moves the clock forward and fires every ticker whose deadline
// falls inside the new time. Sends never block.
func (c *FakeClock) Advance(d time.Duration) { c.fc.Advance(d) }
