package engine

import (
	"container/list"
	"sync"

	"github.com/google/btree"
)

// priceLevel is the FIFO queue of resting orders at one price. A level is
// never left in its tree once the queue empties.
type priceLevel struct {
	price  int64
	orders *list.List // of *Order, front = oldest
}

func newPriceLevel(price int64) *priceLevel {
	return &priceLevel{price: price, orders: list.New()}
}

type bidLevelItem struct {
	level *priceLevel
}

func (i *bidLevelItem) Less(than btree.Item) bool {
	other := than.(*bidLevelItem)
	return i.level.price > other.level.price
}

type askLevelItem struct {
	level *priceLevel
}

func (i *askLevelItem) Less(than btree.Item) bool {
	other := than.(*askLevelItem)
	return i.level.price < other.level.price
}

// orderEntry cross-references an order with its slot in its price level's
// queue. The element handle makes cancellation O(1); it is valid only while
// the order stays in that exact queue.
type orderEntry struct {
	order *Order
	elem  *list.Element
}

// OrderBook is a single-instrument limit order book with price/time
// priority. Bids and asks are btrees of price levels, Min() being the best
// price on each side. One mutex protects both trees and the id index as a
// unit; a background goroutine expires good-for-day orders at a daily
// cutoff through the same cancel path external callers use.
type OrderBook struct {
	bids   *btree.BTree // sorted descending (highest first)
	asks   *btree.BTree // sorted ascending (lowest first)
	orders map[OrderID]*orderEntry
	mu     sync.Mutex

	clock      Clock
	cutoffHour int

	shutdown  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// DefaultExpiryHour is the local wall-clock hour at which good-for-day
// orders are pruned.
const DefaultExpiryHour = 16

func NewOrderBook() *OrderBook {
	return NewOrderBookWithClock(SystemClock(), DefaultExpiryHour)
}

// NewOrderBookWithClock constructs a book whose expiry daemon runs on the
// given clock and prunes at the given local hour. The daemon starts
// immediately; Close must be called to stop it.
func NewOrderBookWithClock(clock Clock, cutoffHour int) *OrderBook {
	ob := &OrderBook{
		bids:       btree.New(32),
		asks:       btree.New(32),
		orders:     make(map[OrderID]*orderEntry),
		clock:      clock,
		cutoffHour: cutoffHour,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	go ob.pruneGoodForDayOrders()
	return ob
}

// Close signals the expiry daemon and blocks until it exits. It is
// idempotent; the book must not be used after Close returns.
func (ob *OrderBook) Close() {
	ob.closeOnce.Do(func() {
		close(ob.shutdown)
		<-ob.done
	})
}

// Add admits an order and returns the trades it produced, oldest first.
// A duplicate id, a market order facing an empty opposing book, or a
// fill-and-kill order that cannot cross are all rejected by returning no
// trades; rejection is a defined outcome, not an error.
func (ob *OrderBook) Add(order *Order) []Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return ob.addLocked(order)
}

func (ob *OrderBook) addLocked(order *Order) []Trade {
	if _, exists := ob.orders[order.ID]; exists {
		return nil
	}

	if order.Type == TypeMarket {
		// A market order is modeled as a marketable limit order priced at
		// the worst resting price on the opposing side.
		switch {
		case order.Side == SideBuy && ob.asks.Len() > 0:
			worst := ob.asks.Max().(*askLevelItem).level.price
			order = order.ToGoodTillCancel(worst)
		case order.Side == SideSell && ob.bids.Len() > 0:
			worst := ob.bids.Max().(*bidLevelItem).level.price
			order = order.ToGoodTillCancel(worst)
		default:
			return nil
		}
	}

	if order.Type == TypeFillAndKill && !ob.canMatch(order.Side, order.Price) {
		return nil
	}

	level := ob.getOrCreateLevel(order.Side, order.Price)
	elem := level.orders.PushBack(order)
	ob.orders[order.ID] = &orderEntry{order: order, elem: elem}

	return ob.matchOrders()
}

// Cancel removes a resting order. Unknown ids are ignored; cancellation is
// idempotent.
func (ob *OrderBook) Cancel(orderID OrderID) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ob.cancelLocked(orderID)
}

// CancelBatch removes every listed order under one lock acquisition.
func (ob *OrderBook) CancelBatch(orderIDs []OrderID) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for _, orderID := range orderIDs {
		ob.cancelLocked(orderID)
	}
}

// Modify replaces an order's side, price and quantity, preserving its id
// and type, as a cancel followed by an add in one critical section. It
// inherits Add's semantics, including re-rejection of an unmatchable
// fill-and-kill order. Unknown ids are a no-op.
func (ob *OrderBook) Modify(orderID OrderID, side Side, price, quantity int64) []Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	entry, exists := ob.orders[orderID]
	if !exists {
		return nil
	}

	orderType := entry.order.Type
	ob.cancelLocked(orderID)
	return ob.addLocked(NewOrder(orderID, side, orderType, price, quantity))
}

// Size reports the number of resting orders.
func (ob *OrderBook) Size() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	return len(ob.orders)
}

// Order returns a copy of a resting order.
func (ob *OrderBook) Order(orderID OrderID) (Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	entry, exists := ob.orders[orderID]
	if !exists {
		return Order{}, false
	}
	return *entry.order, true
}

// cancelLocked is the cancel primitive; the caller must hold ob.mu.
func (ob *OrderBook) cancelLocked(orderID OrderID) {
	entry, exists := ob.orders[orderID]
	if !exists {
		return
	}

	delete(ob.orders, orderID)

	order := entry.order
	tree, probe := ob.treeFor(order.Side, order.Price)
	item := tree.Get(probe)
	if item == nil {
		return
	}

	level := levelOf(item)
	level.orders.Remove(entry.elem)

	// edge case: remove empty price level
	if level.orders.Len() == 0 {
		tree.Delete(probe)
	}
}

// canMatch reports whether an order of the given side and price could
// cross immediately against the opposing book.
func (ob *OrderBook) canMatch(side Side, price int64) bool {
	if side == SideBuy {
		if ob.asks.Len() == 0 {
			return false
		}
		bestAsk := ob.asks.Min().(*askLevelItem).level.price
		return price >= bestAsk
	}

	if ob.bids.Len() == 0 {
		return false
	}
	bestBid := ob.bids.Min().(*bidLevelItem).level.price
	return price <= bestBid
}

// matchOrders crosses the book until best bid < best ask or a side
// empties, consuming the oldest order at each best level first. The
// caller must hold ob.mu.
func (ob *OrderBook) matchOrders() []Trade {
	var trades []Trade

	for {
		if ob.bids.Len() == 0 || ob.asks.Len() == 0 {
			break
		}

		bidLevel := ob.bids.Min().(*bidLevelItem).level
		askLevel := ob.asks.Min().(*askLevelItem).level

		if bidLevel.price < askLevel.price {
			break
		}

		for bidLevel.orders.Len() > 0 && askLevel.orders.Len() > 0 {
			bid := bidLevel.orders.Front().Value.(*Order)
			ask := askLevel.orders.Front().Value.(*Order)

			quantity := bid.RemainingQuantity
			if ask.RemainingQuantity < quantity {
				quantity = ask.RemainingQuantity
			}

			bid.Fill(quantity)
			ask.Fill(quantity)

			if bid.IsFilled() {
				bidLevel.orders.Remove(bidLevel.orders.Front())
				delete(ob.orders, bid.ID)
			}

			if ask.IsFilled() {
				askLevel.orders.Remove(askLevel.orders.Front())
				delete(ob.orders, ask.ID)
			}

			// Each side's trade info carries its own order's price; the
			// aggressor is not re-priced to the resting level.
			trades = append(trades, Trade{
				Bid: TradeInfo{OrderID: bid.ID, Price: bid.Price, Quantity: quantity},
				Ask: TradeInfo{OrderID: ask.ID, Price: ask.Price, Quantity: quantity},
			})
		}

		if bidLevel.orders.Len() == 0 {
			ob.bids.Delete(&bidLevelItem{level: bidLevel})
		}
		if askLevel.orders.Len() == 0 {
			ob.asks.Delete(&askLevelItem{level: askLevel})
		}
	}

	// A fill-and-kill order that partially filled must not rest. Only the
	// front order of each best level is checked; at most one fill-and-kill
	// order can rest transiently after a crossing pass.
	if ob.bids.Len() > 0 {
		level := ob.bids.Min().(*bidLevelItem).level
		front := level.orders.Front().Value.(*Order)
		if front.Type == TypeFillAndKill {
			ob.cancelLocked(front.ID)
		}
	}

	if ob.asks.Len() > 0 {
		level := ob.asks.Min().(*askLevelItem).level
		front := level.orders.Front().Value.(*Order)
		if front.Type == TypeFillAndKill {
			ob.cancelLocked(front.ID)
		}
	}

	return trades
}

func (ob *OrderBook) treeFor(side Side, price int64) (*btree.BTree, btree.Item) {
	if side == SideBuy {
		return ob.bids, &bidLevelItem{level: &priceLevel{price: price}}
	}
	return ob.asks, &askLevelItem{level: &priceLevel{price: price}}
}

func levelOf(item btree.Item) *priceLevel {
	switch it := item.(type) {
	case *bidLevelItem:
		return it.level
	default:
		return it.(*askLevelItem).level
	}
}

func (ob *OrderBook) getOrCreateLevel(side Side, price int64) *priceLevel {
	tree, probe := ob.treeFor(side, price)

	if existing := tree.Get(probe); existing != nil {
		return levelOf(existing)
	}

	level := newPriceLevel(price)
	if side == SideBuy {
		tree.ReplaceOrInsert(&bidLevelItem{level: level})
	} else {
		tree.ReplaceOrInsert(&askLevelItem{level: level})
	}
	return level
}

// BestBid returns the best (highest) resting bid price and the aggregate
// remaining quantity at that level.
func (ob *OrderBook) BestBid() (price int64, quantity int64, ok bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.bids.Len() == 0 {
		return 0, 0, false
	}
	level := ob.bids.Min().(*bidLevelItem).level
	return level.price, levelQuantity(level), true
}

// BestAsk returns the best (lowest) resting ask price and the aggregate
// remaining quantity at that level.
func (ob *OrderBook) BestAsk() (price int64, quantity int64, ok bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	if ob.asks.Len() == 0 {
		return 0, 0, false
	}
	level := ob.asks.Min().(*askLevelItem).level
	return level.price, levelQuantity(level), true
}

func levelQuantity(level *priceLevel) int64 {
	var total int64
	for e := level.orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).RemainingQuantity
	}
	return total
}
