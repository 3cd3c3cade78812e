package engine

import "testing"

// TestOrderFill tests decrementing remaining quantity on fills
func TestOrderFill(t *testing.T) {
	order := NewOrder(1, SideBuy, TypeGoodTillCancel, 100, 10)

	if order.RemainingQuantity != 10 {
		t.Fatalf("Expected remaining quantity 10, got: %d", order.RemainingQuantity)
	}

	order.Fill(4)

	if order.RemainingQuantity != 6 {
		t.Errorf("Expected remaining quantity 6, got: %d", order.RemainingQuantity)
	}

	if order.FilledQuantity() != 4 {
		t.Errorf("Expected filled quantity 4, got: %d", order.FilledQuantity())
	}

	if order.IsFilled() {
		t.Error("Order should not be filled")
	}

	order.Fill(6)

	if !order.IsFilled() {
		t.Error("Order should be filled")
	}
}

// TestOrderFillClamped tests that a fill never exceeds the remaining quantity
func TestOrderFillClamped(t *testing.T) {
	order := NewOrder(1, SideSell, TypeGoodTillCancel, 100, 5)

	order.Fill(50)

	if order.RemainingQuantity != 0 {
		t.Errorf("Expected remaining quantity 0, got: %d", order.RemainingQuantity)
	}
}

// TestToGoodTillCancel tests market order conversion to a repriced GTC value
func TestToGoodTillCancel(t *testing.T) {
	market := NewMarketOrder(7, SideBuy, 10)

	if market.Type != TypeMarket {
		t.Fatalf("Expected type MARKET, got: %s", market.Type)
	}

	converted := market.ToGoodTillCancel(150)

	if converted.Type != TypeGoodTillCancel {
		t.Errorf("Expected converted type GTC, got: %s", converted.Type)
	}

	if converted.Price != 150 {
		t.Errorf("Expected converted price 150, got: %d", converted.Price)
	}

	if converted.ID != market.ID {
		t.Errorf("Conversion must preserve order id, got: %d", converted.ID)
	}

	if converted.RemainingQuantity != 10 {
		t.Errorf("Conversion must preserve remaining quantity, got: %d", converted.RemainingQuantity)
	}

	// Original value is untouched
	if market.Type != TypeMarket || market.Price != 0 {
		t.Error("Conversion must not mutate the original order")
	}
}
