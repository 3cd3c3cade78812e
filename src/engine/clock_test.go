package engine

import (
	"sync"
	"testing"
	"time"
)

// fakeClock drives the expiry daemon in tests. Timers fire only when the
// test advances the clock past their deadline.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{
		ch:       make(chan time.Time, 1),
		deadline: c.now.Add(d),
	}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock forward and fires every pending timer whose
// deadline has passed.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	remaining := c.timers[:0]
	for _, timer := range c.timers {
		if timer.fire(c.now) {
			continue
		}
		remaining = append(remaining, timer)
	}
	c.timers = remaining
}

func (c *fakeClock) timerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type fakeTimer struct {
	mu       sync.Mutex
	ch       chan time.Time
	deadline time.Time
	stopped  bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *fakeTimer) fire(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || now.Before(t.deadline) {
		return false
	}
	t.stopped = true
	t.ch <- now
	return true
}

// waitForTimer blocks until the daemon has armed a timer on the clock.
func waitForTimer(t *testing.T, clock *fakeClock) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for clock.timerCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Expiry daemon never armed its timer")
		}
		time.Sleep(time.Millisecond)
	}
}

// waitForSize blocks until the book reaches the expected resting count.
func waitForSize(t *testing.T, book *OrderBook, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for book.Size() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected book size %d, got: %d", want, book.Size())
		}
		time.Sleep(time.Millisecond)
	}
}

// newTestBook builds a book on a fake clock parked mid-morning, well before
// the daily cutoff.
func newTestBook(t *testing.T) (*OrderBook, *fakeClock) {
	t.Helper()

	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local))
	book := NewOrderBookWithClock(clock, DefaultExpiryHour)
	t.Cleanup(book.Close)
	return book, clock
}
