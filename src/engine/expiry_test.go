package engine

import (
	"testing"
	"time"
)

// TestNextCutoffSameDay tests cutoff computation before the daily hour
func TestNextCutoffSameDay(t *testing.T) {
	book, _ := newTestBook(t)

	now := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local)
	cutoff := book.nextCutoff(now)

	want := time.Date(2024, time.March, 5, 16, 0, 0, 0, time.Local)
	if !cutoff.Equal(want) {
		t.Errorf("Expected cutoff %v, got: %v", want, cutoff)
	}
}

// TestNextCutoffRollsToNextDay tests cutoff computation at and after the
// daily hour
func TestNextCutoffRollsToNextDay(t *testing.T) {
	book, _ := newTestBook(t)

	for _, now := range []time.Time{
		time.Date(2024, time.March, 5, 16, 0, 0, 0, time.Local),
		time.Date(2024, time.March, 5, 19, 30, 0, 0, time.Local),
	} {
		cutoff := book.nextCutoff(now)
		want := time.Date(2024, time.March, 6, 16, 0, 0, 0, time.Local)
		if !cutoff.Equal(want) {
			t.Errorf("For now=%v expected cutoff %v, got: %v", now, want, cutoff)
		}
	}
}

// TestExpiryCancelsGoodForDayOrders tests that the daemon removes only
// good-for-day orders at the cutoff, without producing trades
func TestExpiryCancelsGoodForDayOrders(t *testing.T) {
	book, clock := newTestBook(t)

	waitForTimer(t, clock)

	book.Add(NewOrder(1, SideBuy, TypeGoodForDay, 100, 10))
	book.Add(NewOrder(2, SideBuy, TypeGoodTillCancel, 99, 10))
	book.Add(NewOrder(3, SideSell, TypeGoodForDay, 110, 10))

	// Clock starts at 10:00; 7 hours lands past the 16:00 cutoff
	clock.Advance(7 * time.Hour)

	waitForSize(t, book, 1)

	if _, ok := book.Order(2); !ok {
		t.Error("Good-till-cancel order must survive the daily cutoff")
	}
	if _, ok := book.Order(1); ok {
		t.Error("Good-for-day bid should be expired")
	}
	if _, ok := book.Order(3); ok {
		t.Error("Good-for-day ask should be expired")
	}
}

// TestExpiryIgnoresAlreadyCancelledOrders tests that an order cancelled
// before the cutoff is unaffected by the sweep
func TestExpiryIgnoresAlreadyCancelledOrders(t *testing.T) {
	book, clock := newTestBook(t)

	waitForTimer(t, clock)

	book.Add(NewOrder(1, SideBuy, TypeGoodForDay, 100, 10))
	book.Cancel(1)

	clock.Advance(7 * time.Hour)

	// The sweep finds nothing; the book stays empty and usable
	waitForSize(t, book, 0)

	book.Add(NewOrder(2, SideBuy, TypeGoodTillCancel, 100, 10))
	if book.Size() != 1 {
		t.Errorf("Expected size 1 after post-sweep add, got: %d", book.Size())
	}
}

// TestExpiryReschedulesDaily tests that the daemon arms a fresh timer for
// the next day after a sweep
func TestExpiryReschedulesDaily(t *testing.T) {
	book, clock := newTestBook(t)

	waitForTimer(t, clock)

	book.Add(NewOrder(1, SideBuy, TypeGoodForDay, 100, 10))
	clock.Advance(7 * time.Hour)
	waitForSize(t, book, 0)

	waitForTimer(t, clock)

	book.Add(NewOrder(2, SideSell, TypeGoodForDay, 110, 10))
	clock.Advance(24 * time.Hour)
	waitForSize(t, book, 0)
}

// TestCloseStopsDaemon tests that Close joins the daemon and is idempotent
func TestCloseStopsDaemon(t *testing.T) {
	clock := newFakeClock(time.Date(2024, time.March, 5, 10, 0, 0, 0, time.Local))
	book := NewOrderBookWithClock(clock, DefaultExpiryHour)

	book.Add(NewOrder(1, SideBuy, TypeGoodForDay, 100, 10))

	done := make(chan struct{})
	go func() {
		book.Close()
		book.Close() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	select {
	case <-book.done:
	default:
		t.Fatal("Daemon goroutine should have exited")
	}
}
