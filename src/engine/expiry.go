package engine

import (
	"time"

	"github.com/rs/zerolog/log"
)

// expiryGrace is added past the cutoff instant so a timer firing marginally
// early never lands before the cutoff.
const expiryGrace = 100 * time.Millisecond

// nextCutoff computes the next daily expiry instant: the cutoff hour today,
// or tomorrow if that hour has already passed.
func (ob *OrderBook) nextCutoff(now time.Time) time.Time {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), ob.cutoffHour, 0, 0, 0, now.Location())
	if !now.Before(cutoff) {
		cutoff = cutoff.AddDate(0, 0, 1)
	}
	return cutoff
}

// pruneGoodForDayOrders is the expiry daemon. It sleeps until the next
// daily cutoff or shutdown, whichever comes first, then bulk-cancels every
// resting good-for-day order through the same cancel path external callers
// use, and reschedules for the following day.
func (ob *OrderBook) pruneGoodForDayOrders() {
	defer close(ob.done)

	for {
		now := ob.clock.Now()
		timer := ob.clock.NewTimer(ob.nextCutoff(now).Sub(now) + expiryGrace)

		select {
		case <-ob.shutdown:
			timer.Stop()
			return
		case <-timer.C():
		}

		var expired []OrderID

		ob.mu.Lock()
		for orderID, entry := range ob.orders {
			if entry.order.Type != TypeGoodForDay {
				continue
			}
			expired = append(expired, orderID)
		}
		ob.mu.Unlock()

		if len(expired) == 0 {
			continue
		}

		ob.CancelBatch(expired)

		log.Info().
			Int("expired_orders", len(expired)).
			Msg("Good-for-day orders expired at daily cutoff")
	}
}
