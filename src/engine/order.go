package engine

type OrderID uint64

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	TypeGoodTillCancel OrderType = "GTC"
	TypeFillAndKill    OrderType = "FAK"
	TypeGoodForDay     OrderType = "GFD"
	TypeMarket         OrderType = "MARKET"
)

// edge case: price stored as int64 in minimal tick units to avoid floating-point precision errors
type Order struct {
	ID                OrderID
	Side              Side
	Type              OrderType
	Price             int64
	InitialQuantity   int64
	RemainingQuantity int64
}

func NewOrder(id OrderID, side Side, orderType OrderType, price, quantity int64) *Order {
	return &Order{
		ID:                id,
		Side:              side,
		Type:              orderType,
		Price:             price,
		InitialQuantity:   quantity,
		RemainingQuantity: quantity,
	}
}

// NewMarketOrder creates an order with no limit price. It is priced against
// the opposing book at admission time, see OrderBook.Add.
func NewMarketOrder(id OrderID, side Side, quantity int64) *Order {
	return NewOrder(id, side, TypeMarket, 0, quantity)
}

// ToGoodTillCancel returns a new order carrying the same identity and
// quantities, repriced as a good-till-cancel limit order. The original
// market order value is left untouched.
func (o *Order) ToGoodTillCancel(price int64) *Order {
	repriced := *o
	repriced.Type = TypeGoodTillCancel
	repriced.Price = price
	return &repriced
}

func (o *Order) FilledQuantity() int64 {
	return o.InitialQuantity - o.RemainingQuantity
}

func (o *Order) Fill(quantity int64) {
	if quantity > o.RemainingQuantity {
		quantity = o.RemainingQuantity
	}
	o.RemainingQuantity -= quantity
}

func (o *Order) IsFilled() bool {
	return o.RemainingQuantity == 0
}

// TradeInfo records one side of a match at that side's own resting price.
type TradeInfo struct {
	OrderID  OrderID
	Price    int64
	Quantity int64
}

// Trade is the bid/ask pair produced by one match. Trades are pure output
// values, never stored in the book.
type Trade struct {
	Bid TradeInfo
	Ask TradeInfo
}
