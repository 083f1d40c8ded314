package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown is the per-question visible time budget, ticking down once per
// second. Start replaces any countdown already running, so at most one runs
// per session. Reaching zero stops the ticker autonomously but triggers no
// session transition; question flow is entirely server-pushed.
type Countdown struct {
	clock clockwork.Clock
	ticks chan int

	mu        sync.Mutex
	remaining int
	stop      chan struct{}
	done      chan struct{}
}

// NewCountdown builds an idle countdown. Pass clockwork.NewRealClock() in
// production and a fake clock in tests.
func NewCountdown(clock clockwork.Clock) *Countdown {
	return &Countdown{
		clock: clock,
		ticks: make(chan int, 1),
	}
}

// C delivers the seconds remaining after each tick, ending with 0. A slow
// reader only ever misses intermediate values, never the latest one.
func (c *Countdown) C() <-chan int {
	return c.ticks
}

// Remaining reports the seconds left. Never negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Start begins a fresh countdown from seconds, cancelling any prior run
// first. Non-positive budgets leave the countdown at zero without ticking.
func (c *Countdown) Start(seconds int) {
	c.Cancel()

	// Drop a stale tick left over from the previous question.
	select {
	case <-c.ticks:
	default:
	}

	if seconds < 0 {
		seconds = 0
	}

	c.mu.Lock()
	c.remaining = seconds
	if seconds == 0 {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	c.stop, c.done = stop, done
	c.mu.Unlock()

	go c.run(seconds, stop, done)
}

// Cancel stops ticking immediately. Idempotent; returns once the runner has
// exited, so no tick is emitted after Cancel.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Countdown) run(remaining int, stop, done chan struct{}) {
	defer close(done)

	ticker := c.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			remaining--
			c.mu.Lock()
			c.remaining = remaining
			c.mu.Unlock()
			c.emit(remaining)
		}
	}
}

// emit never blocks: a pending unread tick is replaced by the newer value.
func (c *Countdown) emit(v int) {
	select {
	case c.ticks <- v:
	default:
		select {
		case <-c.ticks:
		default:
		}
		select {
		case c.ticks <- v:
		default:
		}
	}
}
