// Package clock abstracts the time operations used by the printer
// protocol and the background workers so retry windows and countdowns
// can be tested without real sleeps.
package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is injected into every component that waits. Production code
// uses Real(); tests use Fake().
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C until Stop is called. C has capacity 1 and
// drops ticks when the reader falls behind, like time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stop() }

func wrapTicker(t clockwork.Ticker) *Ticker {
	return &Ticker{C: t.Chan(), stop: t.Stop}
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{c: clockwork.NewRealClock()} }

type realClock struct {
	c clockwork.Clock
}

func (r realClock) Now() time.Time { return r.c.Now() }

func (r realClock) Sleep(d time.Duration) { r.c.Sleep(d) }

func (r realClock) NewTicker(d time.Duration) *Ticker { return wrapTicker(r.c.NewTicker(d)) }
